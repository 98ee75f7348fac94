// Package blueprint parses test blueprints into normalized section
// specifications. Parsing is a pure transformation: no randomness, no
// state, fail-fast on structural problems.
package blueprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/abhisek/mockforge/internal/bank"
)

// ErrUnknownSubject is returned by Resolve when a section references a
// subject with no loaded bank.
var ErrUnknownSubject = errors.New("no bank loaded for subject")

// Blueprint is the parsed, normalized form of a blueprint document.
type Blueprint struct {
	TestID          string        `json:"test_id"`
	TestName        string        `json:"test_name"`
	DurationMinutes int           `json:"duration_minutes"`
	NegativeMarking float64       `json:"negative_marking"`
	Sections        []SectionSpec `json:"sections"`
}

// TotalQuestions sums the target counts of all top-level sections.
func (bp *Blueprint) TotalQuestions() int {
	n := 0
	for i := range bp.Sections {
		n += bp.Sections[i].TotalQuestions
	}
	return n
}

// SectionSpec describes one section (or subsection) of the desired test.
// Specs are immutable once parsed.
type SectionSpec struct {
	SectionName    string  `json:"section_name"`
	Subject        string  `json:"subject"`
	TotalQuestions int     `json:"total_questions"`
	MarksPerQ      float64 `json:"marks_per_question"`
	NegativeMarks  float64 `json:"negative_marks"`

	// DifficultyDistribution maps difficulty to a desired question
	// count. When absent from the document it is filled with the
	// default 30/50/20 split of TotalQuestions.
	DifficultyDistribution map[bank.Difficulty]int `json:"difficulty_distribution,omitempty"`

	// TopicDistribution optionally maps topic to a desired count.
	TopicDistribution map[string]int `json:"topic_distribution,omitempty"`

	// Grouped marks a section that draws whole sets from a grouped
	// bank. When absent it is derived from the referenced bank's kind
	// during Resolve.
	Grouped bool `json:"grouped,omitempty"`

	// GroupTolerance is the accepted deviation from TotalQuestions when
	// packing whole groups. Only meaningful for grouped sections.
	// Filled during normalization from GroupToleranceRaw.
	GroupTolerance int `json:"-"`

	// GroupToleranceRaw distinguishes an absent tolerance (nil,
	// defaults to 1) from an explicit 0, which requests exact packing.
	GroupToleranceRaw *int `json:"group_tolerance,omitempty"`

	Subsections []SectionSpec `json:"subsections,omitempty"`
}

// Leaf reports whether the section selects questions itself rather
// than delegating to subsections.
func (s *SectionSpec) Leaf() bool { return len(s.Subsections) == 0 }

// ParseFile reads and parses a blueprint document from disk.
func ParseFile(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint %s: %w", path, err)
	}
	bp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse blueprint %s: %w", path, err)
	}
	return bp, nil
}

// Parse validates and normalizes a blueprint document.
func Parse(data []byte) (*Blueprint, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validateDocument(parsed); err != nil {
		return nil, err
	}

	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}

	for i := range bp.Sections {
		if err := normalize(&bp.Sections[i]); err != nil {
			return nil, err
		}
	}
	return &bp, nil
}

// normalize fills defaults and cross-checks one section spec and its
// subsections.
func normalize(s *SectionSpec) error {
	if s.TotalQuestions < 0 {
		return fmt.Errorf("section %q: negative total_questions", s.SectionName)
	}

	if !s.Leaf() {
		sum := 0
		for i := range s.Subsections {
			sub := &s.Subsections[i]
			if sub.Subject == "" {
				sub.Subject = s.Subject
			}
			if sub.MarksPerQ == 0 {
				sub.MarksPerQ = s.MarksPerQ
			}
			if sub.NegativeMarks == 0 {
				sub.NegativeMarks = s.NegativeMarks
			}
			if err := normalize(sub); err != nil {
				return err
			}
			sum += sub.TotalQuestions
		}
		if sum != s.TotalQuestions {
			return fmt.Errorf("section %q: subsection counts sum to %d, total_questions is %d",
				s.SectionName, sum, s.TotalQuestions)
		}
		return nil
	}

	if s.DifficultyDistribution == nil {
		s.DifficultyDistribution = DefaultSplit(s.TotalQuestions)
	} else {
		sum := 0
		for d, n := range s.DifficultyDistribution {
			if _, err := bank.ParseDifficulty(string(d)); err != nil {
				return fmt.Errorf("section %q: %w", s.SectionName, err)
			}
			if n < 0 {
				return fmt.Errorf("section %q: negative count for %s", s.SectionName, d)
			}
			sum += n
		}
		if sum != s.TotalQuestions {
			return fmt.Errorf("section %q: difficulty_distribution sums to %d, total_questions is %d",
				s.SectionName, sum, s.TotalQuestions)
		}
	}

	if s.TopicDistribution != nil {
		sum := 0
		for _, n := range s.TopicDistribution {
			if n < 0 {
				return fmt.Errorf("section %q: negative topic count", s.SectionName)
			}
			sum += n
		}
		if sum != s.TotalQuestions {
			return fmt.Errorf("section %q: topic_distribution sums to %d, total_questions is %d",
				s.SectionName, sum, s.TotalQuestions)
		}
	}

	if s.GroupToleranceRaw != nil {
		s.GroupTolerance = *s.GroupToleranceRaw
	} else {
		s.GroupTolerance = 1
	}
	return nil
}

// Resolve checks every subject reference against the loaded banks and
// derives the Grouped flag from the bank kind where the document did not
// set it.
func (bp *Blueprint) Resolve(banks *bank.BankSet) error {
	var walk func(s *SectionSpec) error
	walk = func(s *SectionSpec) error {
		if !s.Leaf() {
			for i := range s.Subsections {
				if err := walk(&s.Subsections[i]); err != nil {
					return err
				}
			}
			return nil
		}
		b, ok := banks.Get(s.Subject)
		if !ok {
			return fmt.Errorf("section %q: subject %q: %w", s.SectionName, s.Subject, ErrUnknownSubject)
		}
		if b.Kind == bank.KindGrouped {
			s.Grouped = true
		} else if s.Grouped {
			return fmt.Errorf("section %q: grouped section but bank %q is flat", s.SectionName, s.Subject)
		}
		return nil
	}

	for i := range bp.Sections {
		if err := walk(&bp.Sections[i]); err != nil {
			return err
		}
	}
	return nil
}
