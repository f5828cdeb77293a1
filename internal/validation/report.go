package validation

import (
	"time"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/rules"
)

// Report is the exportable record of a successful validation.
type Report struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Artifacts   []artifacts.Artifact `json:"artifacts"`
	Rules       []rules.Rule         `json:"rules"`
	Summary     Summary              `json:"summary"`
}
