// Command relayhost runs the relay box controller on a Linux board: commands
// arrive on a serial device (typically a Bluetooth RFCOMM port), relays and the
// pulse output are GPIO pins, and the LCD hangs off an I2C bus.
//
//	relayhost relayhost.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"

	"github.com/harveysanders/relaybox/relayhost/config"
	"github.com/harveysanders/relaybox/relayhost/periphio"
	"github.com/harveysanders/relaybox/relayhost/serialio"
	"github.com/harveysanders/relaybox/relayhost/telemetry"
	"github.com/harveysanders/relaybox/relaybox/command"
	"github.com/harveysanders/relaybox/relaybox/controller"
	"github.com/harveysanders/relaybox/relaybox/lcd"
	"github.com/harveysanders/relaybox/relaybox/pulse"
	"github.com/harveysanders/relaybox/relaybox/relay"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: relayhost <config.yaml>")
		os.Exit(2)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config validation failed:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relayhost:stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("relayhost:shutdown")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := periphio.Init(); err != nil {
		return err
	}

	// ---- relays ----
	lightOut, err := periphio.NewOutput(cfg.GPIO.Light)
	if err != nil {
		return err
	}
	fanOut, err := periphio.NewOutput(cfg.GPIO.Fan)
	if err != nil {
		return err
	}
	light := relay.New("light", lightOut)
	fan := relay.New("fan", fanOut)
	defer func() {
		light.Off()
		fan.Off()
	}()

	// ---- edge interrupt -> pulse ----
	if cfg.GPIO.PulseEnabled() {
		pulseOut, err := periphio.NewOutput(cfg.GPIO.Pulse)
		if err != nil {
			return err
		}
		irq, err := periphio.NewRisingEdgeInput(cfg.GPIO.Interrupt)
		if err != nil {
			return err
		}
		pulser := pulse.New(pulseOut, cfg.GPIO.PulseWidth(), logger)
		go pulser.Run(ctx)
		go periphio.WatchEdges(ctx, irq, 250*time.Millisecond, pulser.Trigger)
	}

	// ---- LCD ----
	bus, err := periphio.OpenI2C(cfg.LCD.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()
	time.Sleep(100 * time.Millisecond)

	display, err := openDisplay(bus, cfg.LCD)
	if err != nil {
		return err
	}

	// ---- serial ----
	port, err := serialio.Open(cfg.Serial.Device, cfg.Serial.Baud, cfg.Serial.Timeout())
	if err != nil {
		return err
	}
	defer port.Close()

	// ---- telemetry ----
	var events chan controller.Event
	if cfg.MQTT.Enabled() {
		pub, err := telemetry.Connect(cfg.MQTT, logger)
		if err != nil {
			// Telemetry is optional; relay control carries on without it.
			logger.Error("mqtt:disabled", slog.String("err", err.Error()))
		} else {
			events = make(chan controller.Event, 10)
			go pub.Run(ctx, events)
		}
	}

	ctl, err := controller.New(controller.Config{
		Reader: command.NewReader(serialio.NewByteReader(ctx, port)),
		Light:  light,
		Fan:    fan,
		Screen: lcd.NewScreen(display, logger),
		Logger: logger,
		Events: events,
	})
	if err != nil {
		return err
	}
	logger.Info("relayhost:ready",
		slog.String("serial", cfg.Serial.Device),
		slog.String("lcd", cfg.LCD.Driver),
	)
	return ctl.Run(ctx)
}

func openDisplay(bus drivers.I2C, cfg config.LCDConfig) (lcd.Device, error) {
	switch cfg.Driver {
	case config.DriverHD44780:
		dev := hd44780i2c.New(bus, cfg.Address)
		if err := dev.Configure(hd44780i2c.Config{Width: 16, Height: 2}); err != nil {
			return nil, fmt.Errorf("configure hd44780: %w", err)
		}
		return &dev, nil
	default:
		dev := lcd.NewNibble(bus, cfg.Address)
		dev.Configure()
		if err := dev.Err(); err != nil {
			return nil, fmt.Errorf("configure lcd at %#x: %w", cfg.Address, err)
		}
		return dev, nil
	}
}
