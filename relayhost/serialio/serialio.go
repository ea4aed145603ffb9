// Package serialio reads relay box commands from a host serial port, such as a
// Bluetooth RFCOMM device or a USB UART.
package serialio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// Open opens device at baud, 8N1. timeout bounds each underlying read so that
// ByteReader can notice cancellation; it does not make command reads time out.
func Open(device string, baud int, timeout time.Duration) (serial.Port, error) {
	p, err := serial.Open(&serial.Config{
		Address:  device,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return p, nil
}

// ByteReader is a blocking io.ByteReader over a serial port. Read timeouts
// are retried until a byte arrives or ctx is done.
type ByteReader struct {
	ctx context.Context
	r   io.Reader
	b   [1]byte
}

func NewByteReader(ctx context.Context, r io.Reader) *ByteReader {
	return &ByteReader{ctx: ctx, r: r}
}

func (br *ByteReader) ReadByte() (byte, error) {
	for {
		if err := br.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := br.r.Read(br.b[:])
		if n == 1 {
			return br.b[0], nil
		}
		if err == nil || errors.Is(err, serial.ErrTimeout) {
			continue
		}
		return 0, err
	}
}
