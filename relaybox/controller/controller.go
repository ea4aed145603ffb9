// Package controller runs the relay box control loop: read a command, switch
// the relays, redraw the LCD. One command is handled at a time and a timed
// command holds the loop for its whole countdown.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/harveysanders/relaybox/relaybox/command"
	"github.com/harveysanders/relaybox/relaybox/lcd"
	"github.com/harveysanders/relaybox/relaybox/relay"
)

// Screen is what the controller draws on. *lcd.Screen implements it.
type Screen interface {
	ShowStatus(light, fan bool)
	ShowCountdown(remaining int)
	ShowDone()
	ShowInvalid()
}

var _ Screen = (*lcd.Screen)(nil)

// Event describes the relay state after a command or countdown step.
type Event struct {
	Command   string        `json:"command"`
	Light     bool          `json:"light"`
	Fan       bool          `json:"fan"`
	Remaining uint16        `json:"remaining"` // seconds left on a timed command, 0 otherwise
	Invalid   bool          `json:"invalid"`
	SinceBoot time.Duration `json:"since_boot_ns"`
}

// Config wires a Controller to its hardware.
type Config struct {
	Reader *command.Reader
	Light  *relay.Relay
	Fan    *relay.Relay
	Screen Screen
	Logger *slog.Logger

	// Events, when set, receives an Event per state change. Sends never
	// block; events are dropped if the channel is full.
	Events chan<- Event
	// Sleep waits one countdown step. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Controller owns all mutable device state. Nothing else touches the relays or
// the screen while it runs.
type Controller struct {
	reader *command.Reader
	light  *relay.Relay
	fan    *relay.Relay
	screen Screen
	logger *slog.Logger
	events chan<- Event
	sleep  func(time.Duration)
	start  time.Time
	drops  uint32
}

// New returns a controller with both relays off and the boot status drawn.
func New(cfg Config) (*Controller, error) {
	if cfg.Reader == nil || cfg.Light == nil || cfg.Fan == nil || cfg.Screen == nil {
		return nil, errors.New("controller: reader, relays and screen are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	c := &Controller{
		reader: cfg.Reader,
		light:  cfg.Light,
		fan:    cfg.Fan,
		screen: cfg.Screen,
		logger: logger,
		events: cfg.Events,
		sleep:  sleep,
		start:  time.Now(),
	}
	c.light.Off()
	c.fan.Off()
	c.showStatus()
	return c, nil
}

// Run reads and handles commands until the reader fails or ctx is done.
// ctx is checked between commands only; a running countdown always finishes.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.reader.ReadCommand()
		if err != nil {
			return err
		}
		c.Handle(raw)
	}
}

// Handle applies one raw command.
func (c *Controller) Handle(raw []byte) {
	cmd, err := command.Parse(raw)
	if err != nil {
		c.logger.Info("controller:invalid-command", slog.String("raw", string(raw)))
		c.screen.ShowInvalid()
		c.emit(Event{Command: string(raw), Invalid: true})
		return
	}
	c.logger.Info("controller:command",
		slog.String("kind", cmd.Kind.String()),
		slog.Int("seconds", int(cmd.Seconds)),
	)

	switch cmd.Kind {
	case command.KindLightOn:
		c.light.On()
	case command.KindLightOff:
		c.light.Off()
	case command.KindFanOn:
		c.fan.On()
	case command.KindFanOff:
		c.fan.Off()
	case command.KindTimedLight:
		c.runTimer(string(raw), cmd.Seconds)
		return
	}
	c.showStatus()
	c.emit(Event{Command: string(raw)})
}

// State reports the current relay outputs.
func (c *Controller) State() (light, fan bool) {
	return c.light.IsOn(), c.fan.IsOn()
}

// Dropped returns the number of events discarded because the channel was full.
func (c *Controller) Dropped() uint32 { return c.drops }

// runTimer holds the light on for secs seconds, showing the remaining time,
// then switches it off. The loop is unresponsive for the duration.
func (c *Controller) runTimer(name string, secs uint16) {
	c.light.On()
	c.showStatus()

	for remaining := secs; remaining > 0; remaining-- {
		c.screen.ShowCountdown(int(remaining))
		c.emit(Event{Command: name, Remaining: remaining})
		c.sleep(time.Second)
	}
	c.screen.ShowDone()

	c.light.Off()
	c.showStatus()
	c.emit(Event{Command: name})
	c.logger.Info("controller:timer-done", slog.Int("seconds", int(secs)))
}

func (c *Controller) showStatus() {
	light, fan := c.State()
	c.screen.ShowStatus(light, fan)
}

func (c *Controller) emit(ev Event) {
	if c.events == nil {
		return
	}
	ev.Light, ev.Fan = c.State()
	ev.SinceBoot = time.Since(c.start)
	select {
	case c.events <- ev:
	default:
		c.drops++
	}
}
