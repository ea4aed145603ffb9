// relayhost/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- serial ----
	if cfg.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.TimeoutMs <= 0 {
		return fmt.Errorf("serial.timeout_ms must be positive, got %d", cfg.Serial.TimeoutMs)
	}

	// ---- lcd ----
	switch cfg.LCD.Driver {
	case DriverNibble, DriverHD44780:
	default:
		return fmt.Errorf("lcd.driver %q: must be %q or %q", cfg.LCD.Driver, DriverNibble, DriverHD44780)
	}
	// 7-bit addresses outside 0x08..0x77 are reserved.
	if cfg.LCD.Address < 0x08 || cfg.LCD.Address > 0x77 {
		return fmt.Errorf("lcd.address %#x is outside 0x08..0x77", cfg.LCD.Address)
	}

	// ---- gpio ----
	if cfg.GPIO.Light == "" || cfg.GPIO.Fan == "" {
		return fmt.Errorf("gpio.light and gpio.fan are required")
	}
	if (cfg.GPIO.Interrupt == "") != (cfg.GPIO.Pulse == "") {
		return fmt.Errorf("gpio.interrupt and gpio.pulse must be set together")
	}
	if cfg.GPIO.PulseMs <= 0 {
		return fmt.Errorf("gpio.pulse_ms must be positive, got %d", cfg.GPIO.PulseMs)
	}
	owner := make(map[string]string)
	for _, p := range []struct{ role, name string }{
		{"light", cfg.GPIO.Light},
		{"fan", cfg.GPIO.Fan},
		{"interrupt", cfg.GPIO.Interrupt},
		{"pulse", cfg.GPIO.Pulse},
	} {
		if p.name == "" {
			continue
		}
		if prev, ok := owner[p.name]; ok {
			return fmt.Errorf("gpio.%s: pin %s already used by gpio.%s", p.role, p.name, prev)
		}
		owner[p.name] = p.role
	}

	// ---- mqtt ----
	if cfg.MQTT.Enabled() && cfg.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when mqtt.broker is set")
	}
	if cfg.MQTT.Password != "" && cfg.MQTT.Username == "" {
		return fmt.Errorf("mqtt.password requires mqtt.username")
	}

	// ---- log ----
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Log.Level)
	}

	return nil
}
