package lcd

import (
	"time"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the usual 7-bit address of a PCF8574 LCD backpack.
const DefaultAddress = 0x27

// PCF8574 port bits: P0=RS, P2=E, P3=backlight, P4-P7=D4-D7.
const (
	registerSelect = 0x01
	enable         = 0x04
	backlight      = 0x08
)

// HD44780 commands.
const (
	cmdClear     = 0x01
	cmdEntryMode = 0x06 // increment, no shift
	cmdDisplayOn = 0x0C // display on, cursor off
	cmdFunction  = 0x28 // 4-bit, 2 lines, 5x8
	cmdInit8     = 0x33
	cmdInit4     = 0x32
	cmdSetDDRAM  = 0x80
)

// Execution times.
const (
	powerOnDelay = 20 * time.Millisecond
	byteDelay    = 2 * time.Millisecond
	clearDelay   = 5 * time.Millisecond
)

var rowOffsets = [2]uint8{0x00, 0x40}

// Nibble drives an HD44780 through a PCF8574 I2C expander in 4-bit mode.
//
// Every byte is sent as two I2C writes, upper nibble first. Each write carries
// the nibble twice: once with the enable bit set and once with it cleared, so
// the controller latches on the falling edge. The backlight bit is always on.
type Nibble struct {
	bus  drivers.I2C
	addr uint16
	// Sleep waits out controller execution times. Defaults to time.Sleep.
	Sleep func(time.Duration)

	tx  [2]byte
	err error
}

// NewNibble creates the driver. The I2C bus must already be configured.
// It does not touch the device; call Configure for that.
func NewNibble(bus drivers.I2C, addr uint8) *Nibble {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &Nibble{bus: bus, addr: uint16(addr), Sleep: time.Sleep}
}

// Configure runs the 4-bit initialisation sequence and clears the display.
func (d *Nibble) Configure() {
	d.Sleep(powerOnDelay)
	d.Command(cmdInit8)
	d.Command(cmdInit4)
	d.Command(cmdFunction)
	d.Command(cmdDisplayOn)
	d.Command(cmdEntryMode)
	d.Command(cmdClear)
	d.Sleep(clearDelay)
}

// Command sends an instruction byte (RS low).
func (d *Nibble) Command(cmd uint8) { d.write(cmd, 0) }

// WriteChar sends a data byte (RS high).
func (d *Nibble) WriteChar(c uint8) { d.write(c, registerSelect) }

// ClearDisplay clears the display and homes the cursor.
func (d *Nibble) ClearDisplay() {
	d.Command(cmdClear)
	d.Sleep(clearDelay)
}

// SetCursor moves the cursor to column x of row y. Rows past the second are
// clamped to the second.
func (d *Nibble) SetCursor(x, y uint8) {
	if int(y) >= len(rowOffsets) {
		y = uint8(len(rowOffsets) - 1)
	}
	d.Command(cmdSetDDRAM | (rowOffsets[y] + x))
}

// Print writes data at the cursor.
func (d *Nibble) Print(data []byte) {
	for _, c := range data {
		d.WriteChar(c)
	}
}

// Err returns the first bus error seen since the driver was created, if any.
func (d *Nibble) Err() error { return d.err }

func (d *Nibble) write(value, mode uint8) {
	d.writeNibble(value&0xF0, mode)
	d.writeNibble((value<<4)&0xF0, mode)
	d.Sleep(byteDelay)
}

func (d *Nibble) writeNibble(nibble, mode uint8) {
	d.tx[0] = nibble | backlight | enable | mode
	d.tx[1] = nibble | backlight | mode
	if err := d.bus.Tx(d.addr, d.tx[:], nil); err != nil && d.err == nil {
		d.err = err
	}
}
