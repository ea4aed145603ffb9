//go:build tinygo

// Command relaybox is the Pico W firmware: two relays (light, fan) switched by
// commands from a Bluetooth serial module, status on a 16x2 I2C LCD, and an
// edge-triggered pulse output.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/harveysanders/relaybox/relaybox/command"
	"github.com/harveysanders/relaybox/relaybox/controller"
	"github.com/harveysanders/relaybox/relaybox/lcd"
	"github.com/harveysanders/relaybox/relaybox/mqtt"
	"github.com/harveysanders/relaybox/relaybox/pulse"
	"github.com/harveysanders/relaybox/relaybox/relay"
	"github.com/harveysanders/relaybox/relaybox/wifi"
	"github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	lightPin = machine.GP14
	fanPin   = machine.GP15
	pulsePin = machine.GP16
	irqPin   = machine.GP17

	btBaud   = 9600 // HC-05 default
	i2cFreq  = 100_000
	deviceID = "relaybox"
)

func main() {
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	ctx := context.Background()

	// Relays first so they are off as early as possible.
	lightPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	fanPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	light := relay.New("light", lightPin)
	fan := relay.New("fan", fanPin)

	// Edge interrupt -> pulse. The handler only flags the edge; TinyGo
	// acknowledges the IRQ when the callback returns.
	pulsePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	irqPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	pulser := pulse.New(pulsePin, pulse.DefaultWidth, logger)
	err := irqPin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		pulser.Trigger()
	})
	if err != nil {
		printErrForever(logger, "configure interrupt", slog.Any("reason", err))
	}
	go pulser.Run(ctx)

	uart := uartx.UART0
	err = uart.Configure(uartx.UARTConfig{
		BaudRate: btBaud,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	if err != nil {
		printErrForever(logger, "configure UART", slog.Any("reason", err))
	}

	err = machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.GP4,
		SCL:       machine.GP5,
		Frequency: i2cFreq,
	})
	if err != nil {
		printErrForever(logger, "configure I2C", slog.Any("reason", err))
	}
	time.Sleep(100 * time.Millisecond)

	display := lcd.NewNibble(machine.I2C0, lcd.DefaultAddress)
	display.Configure()
	if err := display.Err(); err != nil {
		logger.Error("lcd:init-failed", slog.String("err", err.Error()))
	}

	var events chan controller.Event
	if wifi.Enabled() {
		// Buffered so a slow or absent broker never stalls the control loop.
		events = make(chan controller.Event, 10)
		go startTelemetry(logger, events)
	}

	ctl, err := controller.New(controller.Config{
		Reader: command.NewReader(&uartByteReader{u: uart}),
		Light:  light,
		Fan:    fan,
		Screen: lcd.NewScreen(display, logger),
		Logger: logger,
		Events: events,
	})
	if err != nil {
		printErrForever(logger, "create controller", slog.Any("reason", err))
	}
	logger.Info("relaybox:ready")

	err = ctl.Run(ctx)
	printErrForever(logger, "control loop stopped", slog.Any("reason", err))
}

func startTelemetry(logger *slog.Logger, events <-chan controller.Event) {
	st, err := wifi.Up(wifi.Config{
		Hostname:    deviceID,
		MaxTCPPorts: 1,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("wifi:setup-failed", slog.String("reason", err.Error()))
		return
	}
	c := mqtt.Client{
		ID:                deviceID,
		Logger:            logger,
		Timeout:           5 * time.Second,
		TCPBufSize:        2030, // MTU - ethhdr - iphdr - tcphdr
		HeartbeatInterval: mqtt.DefaultHeartbeat,
	}
	err = c.ConnectAndPublish(st.Lneto(), wifi.Broker(), events)
	if err != nil {
		logger.Error("mqtt:stopped", slog.String("reason", err.Error()))
	}
}

// uartByteReader turns the UART's chunked receive into a blocking
// io.ByteReader for the command reader.
type uartByteReader struct {
	u *uartx.UART
	b [1]byte
}

func (r *uartByteReader) ReadByte() (byte, error) {
	for {
		n, err := r.u.RecvSomeContext(context.Background(), r.b[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return r.b[0], nil
		}
	}
}

// printErrForever logs msg @ 1hz. It blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}
