// Package instance identifies the running process in logs when several
// deployments share one log stream.
package instance

import "github.com/angelmondragon/pricewatch-backend/pkg/env"

// GetID returns the configured instance identifier or a local default.
func GetID() string {
	return env.App("INSTANCE_ID", "local")
}
