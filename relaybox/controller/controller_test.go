package controller

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/harveysanders/relaybox/relaybox/command"
	"github.com/harveysanders/relaybox/relaybox/lcd"
	"github.com/harveysanders/relaybox/relaybox/relay"
)

type fakePin struct{ level bool }

func (p *fakePin) Set(b bool) { p.level = b }
func (p *fakePin) Get() bool  { return p.level }

// fakeDevice records what reaches the LCD, one entry per screen line write,
// and snapshots the light pin at every clear so relay timing can be checked.
type fakeDevice struct {
	lightPin *fakePin
	screens  []string
	lightAt  []bool
	cur      []string
}

func (d *fakeDevice) ClearDisplay() {
	d.flush()
	d.lightAt = append(d.lightAt, d.lightPin.level)
}
func (d *fakeDevice) SetCursor(x, y uint8) {}
func (d *fakeDevice) Print(data []byte)    { d.cur = append(d.cur, string(data)) }
func (d *fakeDevice) flush() {
	if len(d.cur) > 0 {
		d.screens = append(d.screens, strings.Join(d.cur, "/"))
	}
	d.cur = nil
}
func (d *fakeDevice) all() []string {
	d.flush()
	return d.screens
}

type rig struct {
	ctl    *Controller
	light  *fakePin
	fan    *fakePin
	dev    *fakeDevice
	sleeps []time.Duration
	events chan Event
}

func newRig(t *testing.T, input string) *rig {
	t.Helper()
	r := &rig{light: &fakePin{}, fan: &fakePin{}, events: make(chan Event, 64)}
	r.dev = &fakeDevice{lightPin: r.light}
	ctl, err := New(Config{
		Reader: command.NewReader(strings.NewReader(input)),
		Light:  relay.New("light", r.light),
		Fan:    relay.New("fan", r.fan),
		Screen: lcd.NewScreen(r.dev, nil),
		Events: r.events,
		Sleep:  func(d time.Duration) { r.sleeps = append(r.sleeps, d) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.ctl = ctl
	return r
}

func (r *rig) run(t *testing.T) {
	t.Helper()
	if err := r.ctl.Run(context.Background()); err != io.EOF {
		t.Fatalf("Run: expected io.EOF, got %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBootShowsBothOff(t *testing.T) {
	r := newRig(t, "")
	if got := r.dev.all(); !equal(got, []string{"F: OFF/L: OFF"}) {
		t.Fatalf("boot screens = %q", got)
	}
}

func TestNewRequiresHardware(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestLiteralCommands(t *testing.T) {
	r := newRig(t, "lon\rFON\rFof\rLOF\r")
	// Each 3-byte command leaves its '\r' pending, which reads as an empty
	// (invalid) command.
	r.run(t)

	want := []string{
		"F: OFF/L: OFF",
		"F: OFF/L: ON ", "Invalid Command",
		"F: ON /L: ON ", "Invalid Command",
		"F: OFF/L: ON ", "Invalid Command",
		"F: OFF/L: OFF", "Invalid Command",
	}
	if got := r.dev.all(); !equal(got, want) {
		t.Fatalf("screens:\n got %q\nwant %q", got, want)
	}
	if r.light.level || r.fan.level {
		t.Fatal("relays should end off")
	}
}

func TestLiteralWithoutTerminator(t *testing.T) {
	r := newRig(t, "LONFON")
	r.run(t)
	if !r.light.level || !r.fan.level {
		t.Fatalf("light=%v fan=%v, want both on", r.light.level, r.fan.level)
	}
	light, fan := r.ctl.State()
	if !light || !fan {
		t.Fatal("State() disagrees with pins")
	}
}

func TestInvalidCommandLeavesRelays(t *testing.T) {
	r := newRig(t, "FONXYZL00")
	r.run(t)

	want := []string{"F: OFF/L: OFF", "F: ON /L: OFF", "Invalid Command", "Invalid Command"}
	if got := r.dev.all(); !equal(got, want) {
		t.Fatalf("screens:\n got %q\nwant %q", got, want)
	}
	if !r.fan.level || r.light.level {
		t.Fatal("invalid commands must not change relays")
	}
	if len(r.sleeps) != 0 {
		t.Fatalf("L00 must not start a countdown, slept %v", r.sleeps)
	}
}

func TestTimedLightEndToEnd(t *testing.T) {
	r := newRig(t, "L05")
	r.run(t)

	want := []string{
		"F: OFF/L: OFF", // boot
		"F: OFF/L: ON ",
		"L:5", "L:4", "L:3", "L:2", "L:1",
		"L: DONE",
		"F: OFF/L: OFF",
	}
	if got := r.dev.all(); !equal(got, want) {
		t.Fatalf("screens:\n got %q\nwant %q", got, want)
	}

	// Light pin at each clear: off at boot, on through DONE, off for the
	// final status.
	wantLight := []bool{false, true, true, true, true, true, true, true, false}
	for i, on := range wantLight {
		if r.dev.lightAt[i] != on {
			t.Fatalf("light at screen %d = %v, want %v", i, r.dev.lightAt[i], on)
		}
	}

	if len(r.sleeps) != 5 {
		t.Fatalf("expected 5 one-second waits, got %v", r.sleeps)
	}
	for _, d := range r.sleeps {
		if d != time.Second {
			t.Fatalf("countdown step = %v, want 1s", d)
		}
	}
	if r.light.level {
		t.Fatal("light should be off after countdown")
	}
}

func TestTimedLightKeepsFan(t *testing.T) {
	r := newRig(t, "FONL02")
	r.run(t)
	got := r.dev.all()
	if last := got[len(got)-1]; last != "F: ON /L: OFF" {
		t.Fatalf("final screen = %q", last)
	}
}

func TestEvents(t *testing.T) {
	r := newRig(t, "L02FONX\n")
	r.run(t)
	close(r.events)

	var got []Event
	for ev := range r.events {
		got = append(got, ev)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(got), got)
	}
	if got[0].Remaining != 2 || !got[0].Light || got[0].Command != "L02" {
		t.Errorf("first tick = %+v", got[0])
	}
	if got[1].Remaining != 1 {
		t.Errorf("second tick = %+v", got[1])
	}
	if got[2].Remaining != 0 || got[2].Light {
		t.Errorf("timer end = %+v", got[2])
	}
	if !got[3].Fan || got[3].Command != "FON" {
		t.Errorf("fan on = %+v", got[3])
	}
	if !got[4].Invalid || got[4].Command != "X" {
		t.Errorf("invalid = %+v", got[4])
	}
}

func TestEventsDropWhenFull(t *testing.T) {
	r := &rig{light: &fakePin{}, fan: &fakePin{}}
	r.dev = &fakeDevice{lightPin: r.light}
	events := make(chan Event, 1)
	ctl, err := New(Config{
		Reader: command.NewReader(strings.NewReader("LONLOFFON")),
		Light:  relay.New("light", r.light),
		Fan:    relay.New("fan", r.fan),
		Screen: lcd.NewScreen(r.dev, nil),
		Events: events,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctl.Run(context.Background()); err != io.EOF {
		t.Fatalf("Run: %v", err)
	}
	if ctl.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", ctl.Dropped())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(t, "LON")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.ctl.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if r.light.level {
		t.Fatal("no command should be handled after cancel")
	}
}
