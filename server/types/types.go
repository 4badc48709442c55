// Package types provides shared types for the server package and its subpackages.
package types

import (
	"time"

	"github.com/nomis52/taskboard/buildinfo"
)

// ServerProperties holds metadata about the running server instance.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
	// EngineURL is the redacted engine API base the server talks to.
	EngineURL string `json:"engine_url"`
	// NextSweep is unset when no refresh schedule is configured.
	NextSweep *time.Time `json:"next_sweep,omitempty"`
}
