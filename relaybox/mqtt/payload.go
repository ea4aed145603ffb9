package mqtt

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/harveysanders/relaybox/relaybox/controller"
)

// DefaultHeartbeat is used when Client.HeartbeatInterval is unset.
const DefaultHeartbeat = 30 * time.Second

// Topic returns the state topic for a device ID.
func Topic(id string) []byte {
	t := make([]byte, 0, len("relaybox//state")+len(id))
	t = append(t, "relaybox/"...)
	t = append(t, id...)
	t = append(t, "/state"...)
	return t
}

// Payload encodes an event as the JSON message body.
func Payload(ev controller.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// splitHostPort splits a host:port string into separate host and port components.
// Returns an error if the format is invalid.
func splitHostPort(addr string) (host, port string, err error) {
	// Find the last colon to support IPv6 addresses
	colonIdx := -1
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			colonIdx = i
			break
		}
	}

	if colonIdx == -1 {
		return "", "", errors.New("missing port in address")
	}

	host = addr[:colonIdx]
	port = addr[colonIdx+1:]

	if host == "" {
		return "", "", errors.New("empty host")
	}
	if port == "" {
		return "", "", errors.New("empty port")
	}

	return host, port, nil
}

// parsePort converts a port string to uint16.
// Returns 0 if parsing fails (caller should validate).
func parsePort(portStr string) uint16 {
	var port uint32
	for i := 0; i < len(portStr); i++ {
		if portStr[i] < '0' || portStr[i] > '9' {
			return 0
		}
		port = port*10 + uint32(portStr[i]-'0')
		if port > 0xFFFF {
			return 0
		}
	}
	return uint16(port)
}
