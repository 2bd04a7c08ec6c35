/*
Package randx generates the identifiers the server hands out itself: connection ids
and the fallback server instance id. User ids are always supplied by clients.
*/
package randx

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// InstanceIDPrefix marks server ids that were generated rather than taken from the host.
const InstanceIDPrefix = "nearby-"

// ConnID returns a UUID v4 string identifying one transport connection in logs and metrics.
func ConnID() string {
	return uuid.NewString()
}

// InstanceID returns the host name, or a random prefixed id when the host name is unavailable.
func InstanceID() string {
	if host, err := os.Hostname(); err == nil && strings.TrimSpace(host) != "" {
		return host
	}

	return InstanceIDPrefix + strings.SplitN(uuid.NewString(), "-", 2)[0]
}
