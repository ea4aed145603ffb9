// Package command reads and parses the relay box serial command set.
//
// Commands are 1-3 ASCII bytes terminated by '\n' or '\r':
//
//	LON, LOF   light relay on/off (case-insensitive)
//	FON, FOF   fan relay on/off (case-insensitive)
//	Lnn        light on for nn seconds, 01-99 ('L' must be upper case)
package command

import "errors"

// ErrInvalidCommand is returned by Parse for anything outside the command set.
var ErrInvalidCommand = errors.New("invalid command")

// Kind identifies a parsed command.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindLightOn
	KindLightOff
	KindFanOn
	KindFanOff
	KindTimedLight
)

func (k Kind) String() string {
	switch k {
	case KindLightOn:
		return "LON"
	case KindLightOff:
		return "LOF"
	case KindFanOn:
		return "FON"
	case KindFanOff:
		return "FOF"
	case KindTimedLight:
		return "Lnn"
	}
	return "invalid"
}

// Command is a parsed command. Seconds is only set for KindTimedLight.
type Command struct {
	Kind    Kind
	Seconds uint16
}

var literals = [...]struct {
	text string
	kind Kind
}{
	{"LON", KindLightOn},
	{"LOF", KindLightOff},
	{"FON", KindFanOn},
	{"FOF", KindFanOff},
}

// Parse interprets the content of one command buffer.
//
// The timed form is checked first, so "L05" never reaches the literal table and
// "LON" never matches the timed form. "L00" has the timed shape but is rejected.
func Parse(raw []byte) (Command, error) {
	if len(raw) == 3 && raw[0] == 'L' && isDigit(raw[1]) && isDigit(raw[2]) {
		secs := uint16(raw[1]-'0')*10 + uint16(raw[2]-'0')
		if secs == 0 {
			return Command{}, ErrInvalidCommand
		}
		return Command{Kind: KindTimedLight, Seconds: secs}, nil
	}

	for _, l := range literals {
		if equalFold(raw, l.text) {
			return Command{Kind: l.kind}, nil
		}
	}
	return Command{}, ErrInvalidCommand
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// equalFold compares ASCII case-insensitively without allocating.
func equalFold(raw []byte, s string) bool {
	if len(raw) != len(s) {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if upper(raw[i]) != upper(s[i]) {
			return false
		}
	}
	return true
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
