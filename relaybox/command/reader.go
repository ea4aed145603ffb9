package command

import "io"

// BufferSize is the capacity of the command buffer, terminator included.
// At most BufferSize-1 significant bytes are kept per command.
const BufferSize = 4

// Reader reads short newline-terminated commands from a byte stream.
// It owns a single fixed buffer that is overwritten on every read.
type Reader struct {
	src io.ByteReader
	buf [BufferSize]byte
}

// NewReader returns a Reader on top of a blocking byte source, e.g. a UART.
func NewReader(src io.ByteReader) *Reader {
	return &Reader{src: src}
}

// ReadCommand blocks until '\n' or '\r' is read or BufferSize-1 bytes have been
// collected. The terminator is consumed but not returned. When the byte cap is
// reached first, any terminator that follows stays in the stream and is seen as
// an empty command by the next call.
//
// The returned slice aliases the internal buffer and is only valid until the
// next call.
func (r *Reader) ReadCommand() ([]byte, error) {
	r.buf = [BufferSize]byte{}

	i := 0
	for i < BufferSize-1 {
		b, err := r.src.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '\n' || b == '\r' {
			break
		}
		r.buf[i] = b
		i++
	}
	r.buf[i] = 0
	return r.buf[:i], nil
}
