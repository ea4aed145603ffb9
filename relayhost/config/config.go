// relayhost/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial SerialConfig `yaml:"serial"`
	LCD    LCDConfig    `yaml:"lcd"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Log    LogConfig    `yaml:"log"`
}

// ---- SERIAL (Bluetooth SPP / UART) ----

type SerialConfig struct {
	Device    string `yaml:"device"` // e.g. /dev/rfcomm0
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"` // read poll; reads still block until a byte arrives
}

func (s SerialConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// ---- LCD ----

const (
	DriverNibble  = "nibble"  // relaybox/lcd.Nibble, exact PCF8574 framing
	DriverHD44780 = "hd44780" // tinygo.org/x/drivers/hd44780i2c
)

type LCDConfig struct {
	Bus     string `yaml:"bus"` // periph bus name, "" = first bus
	Address uint8  `yaml:"address"`
	Driver  string `yaml:"driver"`
}

// ---- GPIO (periph pin names, e.g. GPIO17) ----

type GPIOConfig struct {
	Light     string `yaml:"light"`
	Fan       string `yaml:"fan"`
	Interrupt string `yaml:"interrupt"` // optional, with pulse
	Pulse     string `yaml:"pulse"`     // optional, with interrupt
	PulseMs   int    `yaml:"pulse_ms"`
}

func (g GPIOConfig) PulseEnabled() bool { return g.Interrupt != "" }

func (g GPIOConfig) PulseWidth() time.Duration {
	return time.Duration(g.PulseMs) * time.Millisecond
}

// ---- MQTT (optional telemetry) ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // e.g. tcp://10.0.0.9:1883; empty disables telemetry
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Load reads a YAML config file and fills in defaults. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML config and fills in defaults. It does not validate.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	Normalize(&cfg)
	return &cfg, nil
}
