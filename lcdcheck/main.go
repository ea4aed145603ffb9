//go:build tinygo

// Command lcdcheck finds the relay box LCD with the stock TinyGo HD44780 driver
// and draws the boot status screen, to tell wiring faults from firmware faults.
package main

import (
	"machine"
	"time"

	"github.com/harveysanders/relaybox/relaybox/lcd"
	"tinygo.org/x/drivers/hd44780i2c"
)

func main() {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA: machine.GP4,
		SCL: machine.GP5,
	})
	if err != nil {
		for {
			println("could not configure I2C", err.Error())
			time.Sleep(time.Second)
		}
	}

	// Try common addresses (0x27 then 0x3F). A PCF8574 acks a plain
	// port write, so the first address that accepts one is the backpack.
	var addr uint8
	for _, a := range []uint8{lcd.DefaultAddress, 0x3F} {
		println("checking I2C address", a)
		if machine.I2C0.Tx(uint16(a), []byte{0x08}, nil) == nil {
			addr = a
			break
		}
	}
	if addr == 0 {
		for {
			println("LCD not found at 0x27/0x3F")
			time.Sleep(time.Second)
		}
	}

	dev := hd44780i2c.New(machine.I2C0, addr)
	err = dev.Configure(hd44780i2c.Config{
		Width:  16,
		Height: 2,
	})
	if err != nil {
		for {
			println("could not configure LCD", err.Error())
			time.Sleep(time.Second)
		}
	}

	screen := lcd.NewScreen(&dev, nil)
	screen.ShowStatus(false, false)
	time.Sleep(2 * time.Second)
	screen.ShowCountdown(3)
	time.Sleep(2 * time.Second)
	screen.ShowStatus(true, true)

	// Keep main() running
	for {
		println("lcd ok at", addr)
		time.Sleep(time.Second * 5)
	}
}
