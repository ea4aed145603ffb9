// Package relay drives the box's relay outputs.
package relay

// Pin is a digital output that can be read back. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
	Get() bool
}

// Relay is a single relay channel. Its state lives on the pin itself; nothing is
// cached, so what is displayed always matches the output level.
type Relay struct {
	Name string
	pin  Pin
}

// New returns a relay on pin, switched off.
func New(name string, pin Pin) *Relay {
	r := &Relay{Name: name, pin: pin}
	r.Off()
	return r
}

func (r *Relay) On()  { r.pin.Set(true) }
func (r *Relay) Off() { r.pin.Set(false) }

// Set switches the relay to the given state.
func (r *Relay) Set(on bool) { r.pin.Set(on) }

// IsOn reports the current output level.
func (r *Relay) IsOn() bool { return r.pin.Get() }
