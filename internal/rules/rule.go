// Package rules defines the validation rule catalog and the registry that
// tracks each rule's status through pending, validating, passed and failed.
package rules

import "time"

// ID identifies a rule in the catalog.
type ID string

const (
	Layout     ID = "layout"
	Barcode    ID = "barcode"
	Dimensions ID = "dimensions"
	Colors     ID = "colors"
	Quality    ID = "quality"
	Compliance ID = "compliance"
)

// Status is the position of a rule in its validation lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s ends an invocation.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// CanTransition reports whether a rule may move from one status to another.
// Terminal statuses re-enter validating on an explicit trigger; any
// non-validating status may be reset to pending for a full re-run.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusValidating:
		return from == StatusPending || from.Terminal()
	case StatusPassed, StatusFailed:
		return from == StatusValidating
	case StatusPending:
		return from != StatusValidating
	}
	return false
}

// Definition is the static, display-only description of a rule.
type Definition struct {
	ID          ID     `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Rule is a definition together with its current status. Details is set
// only when passed and ErrorDetails only when failed.
type Rule struct {
	Definition
	Status       Status     `json:"status"`
	Details      string     `json:"details,omitempty"`
	ErrorDetails string     `json:"error_details,omitempty"`
	Attempt      int        `json:"attempt"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Outcome is the terminal result committed for an invocation.
type Outcome struct {
	Passed  bool
	Details string
}
