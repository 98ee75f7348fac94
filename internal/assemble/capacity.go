package assemble

import (
	"fmt"
	"math"

	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
)

// SubjectCapacity is the per-subject outcome of a capacity analysis.
type SubjectCapacity struct {
	Subject  string `json:"subject"`
	MaxTests int    `json:"max_tests"`

	// PerDifficulty shows available vs required-per-test counts for
	// flat subjects; empty for grouped subjects.
	PerDifficulty map[bank.Difficulty]CapacityBucket `json:"per_difficulty,omitempty"`
}

// CapacityBucket is one difficulty row of a capacity analysis.
type CapacityBucket struct {
	Available int `json:"available"`
	Required  int `json:"required_per_test"`
}

// CapacityReport estimates how many fully unique tests a blueprint can
// draw from the loaded banks before a pool runs dry.
type CapacityReport struct {
	TestID     string            `json:"test_id"`
	MaxTests   int               `json:"max_tests"`
	Bottleneck string            `json:"bottleneck_subject"`
	Subjects   []SubjectCapacity `json:"subjects"`
}

// Capacity analyzes a resolved blueprint against the banks. The
// estimate assumes no duplicate reuse and ignores shortfall
// redistribution, so it is a floor on unique-question capacity, not a
// guarantee that every test meets its exact distribution.
func (a *Assembler) Capacity(bp *blueprint.Blueprint) (*CapacityReport, error) {
	// Aggregate per-subject demand across all leaf sections.
	flatDemand := make(map[string]map[bank.Difficulty]int)
	groupDemand := make(map[string]int)

	var walk func(s *blueprint.SectionSpec) error
	walk = func(s *blueprint.SectionSpec) error {
		if !s.Leaf() {
			for i := range s.Subsections {
				if err := walk(&s.Subsections[i]); err != nil {
					return err
				}
			}
			return nil
		}
		if _, ok := a.banks.Get(s.Subject); !ok {
			return fmt.Errorf("subject %q: %w", s.Subject, blueprint.ErrUnknownSubject)
		}
		if s.Grouped {
			groupDemand[s.Subject] += s.TotalQuestions
			return nil
		}
		d, ok := flatDemand[s.Subject]
		if !ok {
			d = make(map[bank.Difficulty]int)
			flatDemand[s.Subject] = d
		}
		for level, n := range s.DifficultyDistribution {
			d[level] += n
		}
		return nil
	}
	for i := range bp.Sections {
		if err := walk(&bp.Sections[i]); err != nil {
			return nil, err
		}
	}

	report := &CapacityReport{TestID: bp.TestID, MaxTests: math.MaxInt}

	for _, subject := range a.banks.Subjects() {
		demand, hasFlat := flatDemand[subject]
		subTarget, hasGroup := groupDemand[subject]
		if !hasFlat && !hasGroup {
			continue
		}

		b, _ := a.banks.Get(subject)
		st := b.Stats()

		sc := SubjectCapacity{Subject: subject, MaxTests: math.MaxInt}

		if hasFlat {
			sc.PerDifficulty = make(map[bank.Difficulty]CapacityBucket)
			for _, level := range bank.AllDifficulties() {
				required := demand[level]
				available := st.ByDifficulty[level]
				sc.PerDifficulty[level] = CapacityBucket{Available: available, Required: required}
				if required > 0 && available/required < sc.MaxTests {
					sc.MaxTests = available / required
				}
			}
		}
		if hasGroup && subTarget > 0 && st.Total/subTarget < sc.MaxTests {
			sc.MaxTests = st.Total / subTarget
		}
		if sc.MaxTests == math.MaxInt {
			sc.MaxTests = 0
		}

		report.Subjects = append(report.Subjects, sc)
		if sc.MaxTests < report.MaxTests {
			report.MaxTests = sc.MaxTests
			report.Bottleneck = subject
		}
	}

	if report.MaxTests == math.MaxInt {
		report.MaxTests = 0
	}
	return report, nil
}
