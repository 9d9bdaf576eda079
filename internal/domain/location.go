package domain

import (
	"os"
	"strings"

	"github.com/tabsdata-labs/tabsdata-go/internal/platform/env"
)

// Location points at a persisted table snapshot. A nil/empty URI means
// "no data provisioned for this slot" and is not an error by itself.
type Location struct {
	URI       string
	EnvPrefix string
}

func (l Location) IsNull() bool {
	return strings.TrimSpace(l.URI) == ""
}

// Resolve expands ${VAR} references in the URI, preferring variables
// carrying the location's environment prefix.
func (l Location) Resolve() string {
	if l.IsNull() {
		return ""
	}
	return os.Expand(l.URI, func(key string) string {
		v, _ := env.Prefixed(l.EnvPrefix, key)
		return v
	})
}
