// relayhost/config/normalize.go
package config

const (
	DefaultBaud      = 9600
	DefaultTimeoutMs = 500
	DefaultAddress   = 0x27
	DefaultPulseMs   = 500
	DefaultClientID  = "relaybox"
)

// Normalize fills unset fields with defaults. It only touches zero values.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}
	if cfg.Serial.TimeoutMs == 0 {
		cfg.Serial.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.LCD.Driver == "" {
		cfg.LCD.Driver = DriverNibble
	}
	if cfg.LCD.Address == 0 {
		cfg.LCD.Address = DefaultAddress
	}

	if cfg.GPIO.PulseMs == 0 {
		cfg.GPIO.PulseMs = DefaultPulseMs
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "relaybox/" + cfg.MQTT.ClientID + "/state"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
