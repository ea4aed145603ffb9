// Package pulse drives an output high for a fixed time whenever an edge
// interrupt fires.
//
// The interrupt side only calls Trigger, which never blocks and never sleeps.
// The pulse itself is produced by Run on its own goroutine. The pulser shares
// no state with the control loop: it owns its output pin and nothing else.
package pulse

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultWidth is how long the output stays high per edge.
const DefaultWidth = 500 * time.Millisecond

// Pin is the pulsed output. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
}

// Pulser turns edge notifications into fixed-width pulses.
type Pulser struct {
	out    Pin
	width  time.Duration
	logger *slog.Logger
	// Sleep holds the pulse. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// One slot: the pending-interrupt flag.
	trig chan struct{}

	pulses    uint32
	coalesced uint32
}

// New returns a pulser driving out, which is set low immediately.
func New(out Pin, width time.Duration, logger *slog.Logger) *Pulser {
	if width <= 0 {
		width = DefaultWidth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out.Set(false)
	return &Pulser{
		out:    out,
		width:  width,
		logger: logger,
		Sleep:  time.Sleep,
		trig:   make(chan struct{}, 1),
	}
}

// Trigger records an edge. It is safe to call from an interrupt handler.
func (p *Pulser) Trigger() {
	select {
	case p.trig <- struct{}{}:
	default:
		atomic.AddUint32(&p.coalesced, 1)
	}
}

// Run produces a pulse per recorded edge until ctx is done. Edges that arrive
// while a pulse is high are absorbed when it ends, as if the pending flag were
// cleared after the pulse.
func (p *Pulser) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.trig:
		}

		p.out.Set(true)
		p.Sleep(p.width)
		p.out.Set(false)
		n := atomic.AddUint32(&p.pulses, 1)

		select {
		case <-p.trig:
			atomic.AddUint32(&p.coalesced, 1)
		default:
		}
		p.logger.Debug("pulse:done", slog.Uint64("count", uint64(n)))
	}
}

// Pulses returns the number of completed pulses.
func (p *Pulser) Pulses() uint32 { return atomic.LoadUint32(&p.pulses) }

// Coalesced returns the number of edges absorbed by an in-flight or pending pulse.
func (p *Pulser) Coalesced() uint32 { return atomic.LoadUint32(&p.coalesced) }
