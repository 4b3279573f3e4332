package instance

import "github.com/angelmondragon/lendinglib-backend/pkg/env"

const fallbackID = "local"

// GetID returns the process instance identifier. An explicit
// LENDINGLIB_INSTANCE_ID wins over the platform-provided DYNO.
func GetID() string {
	return env.Get("LENDINGLIB_INSTANCE_ID", env.Get("DYNO", fallbackID))
}
