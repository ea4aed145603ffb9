package relay

import "testing"

type fakePin struct {
	level  bool
	writes int
}

func (p *fakePin) Set(b bool) { p.level = b; p.writes++ }
func (p *fakePin) Get() bool  { return p.level }

func TestNewStartsOff(t *testing.T) {
	pin := &fakePin{level: true}
	r := New("light", pin)
	if r.IsOn() || pin.level {
		t.Fatal("relay should be off after New")
	}
	if pin.writes != 1 {
		t.Fatalf("expected one write on init, got %d", pin.writes)
	}
}

func TestOnOffMirrorsPin(t *testing.T) {
	pin := &fakePin{}
	r := New("fan", pin)

	r.On()
	if !pin.level || !r.IsOn() {
		t.Fatal("On did not drive pin high")
	}
	r.Off()
	if pin.level || r.IsOn() {
		t.Fatal("Off did not drive pin low")
	}
	r.Set(true)
	if !r.IsOn() {
		t.Fatal("Set(true) did not drive pin high")
	}

	// External changes to the pin are visible through IsOn.
	pin.level = false
	if r.IsOn() {
		t.Fatal("IsOn should read the pin, not a cached value")
	}
}
