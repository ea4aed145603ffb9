// Package lcd renders relay box screens on a 16x2 HD44780 character LCD.
//
// Example usage:
//
//	dev := lcd.NewNibble(machine.I2C0, lcd.DefaultAddress)
//	dev.Configure()
//	screen := lcd.NewScreen(dev, logger)
//	screen.ShowStatus(false, false)
package lcd

import (
	"io"
	"log/slog"
	"strconv"
)

// Device is the subset of an HD44780 driver the screens need. It is
// satisfied by *Nibble and by *hd44780i2c.Device.
type Device interface {
	ClearDisplay()
	SetCursor(x, y uint8)
	Print(data []byte)
}

// Fixed-width status texts. The trailing space on "ON " overwrites the last
// character of "OFF" so a redraw never leaves a stray 'F'.
var (
	fanOn    = []byte("F: ON ")
	fanOff   = []byte("F: OFF")
	lightOn  = []byte("L: ON ")
	lightOff = []byte("L: OFF")
	done     = []byte("L: DONE")
	invalid  = []byte("Invalid Command")
)

// Message represents a two-line LCD message. A nil line is left blank and the
// cursor is not moved to it.
type Message struct {
	Line1 []byte
	Line2 []byte
}

// Screen draws messages on a Device.
type Screen struct {
	device  Device
	logger  *slog.Logger
	columns int
	// printBuf is reused for generated text so the countdown does not
	// allocate once per second.
	printBuf []byte
}

// NewScreen creates a 16x2 screen on device.
func NewScreen(device Device, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Screen{
		device:   device,
		logger:   logger,
		columns:  16,
		printBuf: make([]byte, 0, 16),
	}
}

// Show clears the display and prints msg.
func (s *Screen) Show(msg Message) {
	s.device.ClearDisplay()
	if msg.Line1 != nil {
		s.device.SetCursor(0, 0)
		s.device.Print(s.truncate(msg.Line1))
	}
	if msg.Line2 != nil {
		s.device.SetCursor(0, 1)
		s.device.Print(s.truncate(msg.Line2))
	}
	s.checkErr()
}

// ShowStatus draws the fan state on line 1 and the light state on line 2.
func (s *Screen) ShowStatus(light, fan bool) {
	msg := Message{Line1: fanOff, Line2: lightOff}
	if fan {
		msg.Line1 = fanOn
	}
	if light {
		msg.Line2 = lightOn
	}
	s.Show(msg)
}

// ShowCountdown draws "L:<remaining>" on line 2.
func (s *Screen) ShowCountdown(remaining int) {
	s.printBuf = s.printBuf[:0]
	s.printBuf = append(s.printBuf, "L:"...)
	s.printBuf = strconv.AppendInt(s.printBuf, int64(remaining), 10)
	s.Show(Message{Line2: s.printBuf})
}

// ShowDone draws "L: DONE" on line 2.
func (s *Screen) ShowDone() { s.Show(Message{Line2: done}) }

// ShowInvalid draws "Invalid Command" on line 2.
func (s *Screen) ShowInvalid() { s.Show(Message{Line2: invalid}) }

// Truncate in-place, no allocation
func (s *Screen) truncate(line []byte) []byte {
	if len(line) > s.columns {
		return line[:s.columns]
	}
	return line
}

// checkErr logs bus errors from drivers that record them. Rendering carries on
// regardless; a missing display must not stop relay control.
func (s *Screen) checkErr() {
	e, ok := s.device.(interface{ Err() error })
	if !ok {
		return
	}
	if err := e.Err(); err != nil {
		s.logger.Warn("lcd:bus-error", slog.String("err", err.Error()))
	}
}
