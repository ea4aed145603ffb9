package serialio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/goburrow/serial"

	"github.com/harveysanders/relaybox/relaybox/command"
)

// scriptedPort returns one step per Read: a byte or an error.
type scriptedPort struct {
	steps []step
}

type step struct {
	b   byte
	err error
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.steps) == 0 {
		return 0, io.EOF
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	if s.err != nil {
		return 0, s.err
	}
	b[0] = s.b
	return 1, nil
}

func TestByteReaderRetriesTimeouts(t *testing.T) {
	port := &scriptedPort{steps: []step{
		{err: serial.ErrTimeout},
		{b: 'L'},
		{err: serial.ErrTimeout},
		{err: serial.ErrTimeout},
		{b: 'O'},
		{b: 'N'},
	}}
	r := command.NewReader(NewByteReader(context.Background(), port))

	got, err := r.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand: %v", err)
	}
	if string(got) != "LON" {
		t.Fatalf("got %q, want LON", got)
	}
	if _, err := r.ReadCommand(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestByteReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	br := NewByteReader(ctx, &scriptedPort{steps: []step{{b: 'x'}}})
	if _, err := br.ReadByte(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestByteReaderPassesOtherErrors(t *testing.T) {
	boom := errors.New("device gone")
	br := NewByteReader(context.Background(), &scriptedPort{steps: []step{{err: boom}}})
	if _, err := br.ReadByte(); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
