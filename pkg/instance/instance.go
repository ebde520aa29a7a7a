package instance

import (
	"os"

	"github.com/angelmondragon/listing-qa-backend/pkg/env"
)

// GetID identifies the running process in logs and lock ownership. It checks
// LISTINGQA_INSTANCE_ID, then the Heroku DYNO name, then the hostname.
func GetID() string {
	if id := env.First("", "LISTINGQA_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
