// Package periphio adapts periph.io GPIO and I2C to the relay box interfaces
// so the controller can run on a Linux single-board computer.
package periphio

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Init loads the periph host drivers. It is safe to call more than once.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// Output is a push-pull output satisfying relay.Pin and pulse.Pin.
type Output struct {
	pin gpio.PinIO
}

// NewOutput looks up a pin by name (e.g. "GPIO17") and drives it low.
func NewOutput(name string) (*Output, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %q as output: %w", name, err)
	}
	return &Output{pin: p}, nil
}

// Set drives the pin. Errors are dropped: an output that accepted Out once
// does not fail on later writes.
func (o *Output) Set(high bool) { _ = o.pin.Out(gpio.Level(high)) }

// Get reads the pin level back.
func (o *Output) Get() bool { return o.pin.Read() == gpio.High }

// EdgeWaiter is the part of gpio.PinIn used to wait for interrupts.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// NewRisingEdgeInput configures a pulled-up input that reports rising edges.
func NewRisingEdgeInput(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.In(gpio.PullUp, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("gpio %q as edge input: %w", name, err)
	}
	return p, nil
}

// WatchEdges calls fn for every edge until ctx is done. The wait is bounded so
// cancellation is noticed within poll.
func WatchEdges(ctx context.Context, w EdgeWaiter, poll time.Duration, fn func()) {
	for ctx.Err() == nil {
		if w.WaitForEdge(poll) {
			fn()
		}
	}
}

// OpenI2C opens an I2C bus by name; "" opens the first one. The returned bus
// satisfies tinygo.org/x/drivers.I2C.
func OpenI2C(name string) (i2c.BusCloser, error) {
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return b, nil
}
