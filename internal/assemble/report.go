package assemble

import (
	"time"

	"github.com/abhisek/mockforge/internal/bank"
)

// SectionState tracks a section through assembly.
type SectionState string

const (
	StatePending         SectionState = "pending"
	StateSelecting       SectionState = "selecting"
	StateSelected        SectionState = "selected"
	StatePartiallyFilled SectionState = "partially_filled"
	StateFailed          SectionState = "failed"
)

// Status is the overall outcome of one blueprint's assembly.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// SectionReport records the outcome of one section's selection.
type SectionReport struct {
	SectionName string       `json:"section_name"`
	Subject     string       `json:"subject"`
	State       SectionState `json:"state"`

	Requested int `json:"requested"`
	Selected  int `json:"selected"`
	Shortfall int `json:"shortfall,omitempty"`

	// Deficits are the per-difficulty gaps before redistribution.
	Deficits map[bank.Difficulty]int `json:"deficits,omitempty"`

	// GroupIDs lists the sets drawn for group-sourced sections.
	GroupIDs []string `json:"group_ids,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// BuildReport is the sidecar document persisted next to an assembled
// test. Shortfalls are warnings, never errors; only structural problems
// and integrity violations fail a blueprint.
type BuildReport struct {
	TestID      string          `json:"test_id"`
	Status      Status          `json:"status"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []SectionReport `json:"sections"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// finalize derives the overall status from the section states.
func (r *BuildReport) finalize() {
	r.Status = StatusSuccess
	for i := range r.Sections {
		switch r.Sections[i].State {
		case StateFailed:
			r.Status = StatusFailed
			return
		case StatePartiallyFilled:
			r.Status = StatusPartial
		}
	}
	if len(r.Errors) > 0 {
		r.Status = StatusFailed
	}
}
