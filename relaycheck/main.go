//go:build tinygo

// Command relaycheck clicks the light and fan relays in turn.
package main

import (
	"machine"
	"time"

	"github.com/harveysanders/relaybox/relaybox/relay"
)

func main() {
	lightPin := machine.GP14
	fanPin := machine.GP15
	lightPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	fanPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	relays := []*relay.Relay{
		relay.New("light", lightPin),
		relay.New("fan", fanPin),
	}
	for {
		for _, r := range relays {
			r.On()
			println(r.Name, "on:", r.IsOn())
			time.Sleep(time.Second)

			r.Off()
			println(r.Name, "on:", r.IsOn())
			time.Sleep(time.Second)
		}
	}
}
