package pulse

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakePin struct {
	mu      sync.Mutex
	level   bool
	history []bool
}

func (p *fakePin) Set(b bool) {
	p.mu.Lock()
	p.level = b
	p.history = append(p.history, b)
	p.mu.Unlock()
}

func (p *fakePin) snapshot() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.history...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewDrivesLow(t *testing.T) {
	pin := &fakePin{level: true}
	p := New(pin, 0, nil)
	if pin.level {
		t.Fatal("output should start low")
	}
	if p.width != DefaultWidth {
		t.Fatalf("width = %v, want %v", p.width, DefaultWidth)
	}
}

func TestTriggerProducesPulse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pin := &fakePin{}
	p := New(pin, 500*time.Millisecond, nil)
	var held []time.Duration
	var mu sync.Mutex
	p.Sleep = func(d time.Duration) {
		mu.Lock()
		held = append(held, d)
		mu.Unlock()
	}
	go p.Run(ctx)

	p.Trigger()
	waitFor(t, func() bool { return p.Pulses() == 1 })

	got := pin.snapshot()
	want := []bool{false, true, false}
	if len(got) != len(want) {
		t.Fatalf("pin history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pin history = %v, want %v", got, want)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(held) != 1 || held[0] != 500*time.Millisecond {
		t.Fatalf("held = %v", held)
	}
}

func TestEdgesDuringPulseAreAbsorbed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pin := &fakePin{}
	p := New(pin, time.Millisecond, nil)
	release := make(chan struct{})
	p.Sleep = func(time.Duration) { <-release }
	go p.Run(ctx)

	p.Trigger()
	waitFor(t, func() bool { return len(pin.snapshot()) == 2 }) // high

	// Three edges while high: one fills the pending slot, two overflow.
	p.Trigger()
	p.Trigger()
	p.Trigger()
	close(release)

	waitFor(t, func() bool { return p.Pulses() == 1 && p.Coalesced() == 3 })

	// No second pulse follows.
	time.Sleep(10 * time.Millisecond)
	if p.Pulses() != 1 {
		t.Fatalf("pulses = %d, want 1", p.Pulses())
	}
	if pin.snapshot()[len(pin.snapshot())-1] {
		t.Fatal("output left high")
	}
}

func TestTriggerNeverBlocks(t *testing.T) {
	p := New(&fakePin{}, time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Trigger()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked without a running pulser")
	}
	if p.Coalesced() != 99 {
		t.Fatalf("coalesced = %d, want 99", p.Coalesced())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(&fakePin{}, time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
