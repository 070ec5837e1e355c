// Package mode decides which series a deployment exposes.
// A deployment runs either as the public api, serving only the status series,
// or as the private (vpn only) api, serving only the secure-status series.
// The mode is fixed at startup and handed to the api server; it is not a security boundary.
package mode

import (
	"fmt"
	"strings"

	"github.com/grafana/hitcounter/series"
)

type Mode string

const (
	Public  Mode = "public"
	Private Mode = "private"
)

// Parse validates a mode as given on the command line or in the config file
func Parse(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Public, Private:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q. must be %q or %q", s, Public, Private)
}

func (m Mode) String() string {
	return string(m)
}

// Series returns the single series that is reachable in this mode.
func (m Mode) Series() series.ID {
	if m == Private {
		return series.SecureStatus
	}
	return series.Status
}

// Allows returns whether requests for the given series may reach the counter.
func (m Mode) Allows(id series.ID) bool {
	switch m {
	case Public, Private:
		return m.Series() == id
	}
	return false
}
