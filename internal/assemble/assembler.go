// Package assemble orchestrates test assembly: it walks a normalized
// blueprint, draws from the per-subject selection pools, composes
// sections and emits the final test document plus a build report.
package assemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
	"github.com/abhisek/mockforge/internal/selection"
)

// ErrDuplicateQuestion signals that the final document carries one
// question identifier twice. Under correct selector logic this cannot
// happen; it aborts the blueprint rather than writing a corrupt test.
var ErrDuplicateQuestion = errors.New("duplicate question in assembled test")

// Options configures an Assembler.
type Options struct {
	// Shuffle permutes question order within sections. Group
	// sub-questions stay contiguous and keep their internal order.
	Shuffle bool

	// AllowDuplicates disables consumed-set tracking entirely.
	AllowDuplicates bool

	// Seed feeds the assembler's rand source, recorded in the output
	// metadata for reproducibility.
	Seed uint64
}

// Assembler builds tests from blueprints. It owns the per-subject
// selection state: pools persist across Assemble calls, so a batch of
// blueprints assembled by one Assembler shares one consumption epoch.
// Callers wanting independent batches must call Reset between them.
type Assembler struct {
	banks *bank.BankSet
	rng   *rand.Rand
	opts  Options

	pools     map[string]*selection.Pool
	selectors map[string]*selection.GroupSelector
}

// New creates an Assembler over the loaded banks.
func New(banks *bank.BankSet, opts Options) *Assembler {
	return &Assembler{
		banks:     banks,
		rng:       rand.New(rand.NewPCG(opts.Seed, 0)),
		opts:      opts,
		pools:     make(map[string]*selection.Pool),
		selectors: make(map[string]*selection.GroupSelector),
	}
}

// Banks returns the bank set the assembler draws from.
func (a *Assembler) Banks() *bank.BankSet {
	return a.banks
}

// Reset clears every selector's consumed set, starting a fresh epoch.
func (a *Assembler) Reset() {
	for _, p := range a.pools {
		p.Reset()
	}
	for _, gs := range a.selectors {
		gs.Reset()
	}
}

func (a *Assembler) pool(subject string) (*selection.Pool, error) {
	if p, ok := a.pools[subject]; ok {
		return p, nil
	}
	b, ok := a.banks.Get(subject)
	if !ok {
		return nil, fmt.Errorf("subject %q: %w", subject, blueprint.ErrUnknownSubject)
	}
	p := selection.NewPool(b, a.rng)
	a.pools[subject] = p
	return p, nil
}

func (a *Assembler) groupSelector(subject string) (*selection.GroupSelector, error) {
	if gs, ok := a.selectors[subject]; ok {
		return gs, nil
	}
	b, ok := a.banks.Get(subject)
	if !ok {
		return nil, fmt.Errorf("subject %q: %w", subject, blueprint.ErrUnknownSubject)
	}
	gs := selection.NewGroupSelector(b, a.rng)
	a.selectors[subject] = gs
	return gs, nil
}

// Assemble builds one test from a resolved blueprint. Shortfalls are
// recorded in the report and do not fail the build; a missing subject or
// a duplicate-id integrity violation does.
func (a *Assembler) Assemble(bp *blueprint.Blueprint) (*AssembledTest, *BuildReport, error) {
	return a.assemble(bp, 0)
}

func (a *Assembler) assemble(bp *blueprint.Blueprint, seriesIndex int) (*AssembledTest, *BuildReport, error) {
	report := &BuildReport{
		TestID:      bp.TestID,
		GeneratedAt: time.Now().UTC(),
	}

	test := &AssembledTest{
		TestID:                 bp.TestID,
		TestName:               bp.TestName,
		DurationMinutes:        bp.DurationMinutes,
		NegativeMarking:        bp.NegativeMarking,
		DifficultyDistribution: make(map[bank.Difficulty]int),
		Metadata: Metadata{
			InstanceID:  uuid.NewString(),
			BlueprintID: bp.TestID,
			GeneratedAt: time.Now().UTC(),
			Seed:        a.opts.Seed,
			SeriesIndex: seriesIndex,
		},
	}
	if seriesIndex > 0 {
		test.TestID = fmt.Sprintf("%s_%02d", bp.TestID, seriesIndex)
		test.TestName = fmt.Sprintf("%s %d", bp.TestName, seriesIndex)
	}

	var fatal error
	for i := range bp.Sections {
		a.assembleInto(test, report, &bp.Sections[i], "", &fatal)
	}
	if fatal != nil {
		a.rollback(test)
		report.finalize()
		return nil, report, fatal
	}

	for i := range test.Sections {
		sec := &test.Sections[i]
		test.TotalQuestions += len(sec.Questions)
		test.TotalMarks += float64(len(sec.Questions)) * sec.MarksPerQ
		for d, n := range sec.DifficultyDistribution {
			test.DifficultyDistribution[d] += n
		}
	}

	if err := a.checkIntegrity(test); err != nil {
		a.rollback(test)
		report.Errors = append(report.Errors, err.Error())
		report.finalize()
		return nil, report, err
	}

	report.finalize()
	return test, report, nil
}

// assembleInto walks one spec (descending into subsections) and appends
// finished output sections to the test.
func (a *Assembler) assembleInto(test *AssembledTest, report *BuildReport, spec *blueprint.SectionSpec, prefix string, fatal *error) {
	name := spec.SectionName
	if prefix != "" {
		name = prefix + " / " + spec.SectionName
	}

	if !spec.Leaf() {
		for i := range spec.Subsections {
			a.assembleInto(test, report, &spec.Subsections[i], name, fatal)
		}
		return
	}

	// A fatal error aborts the whole blueprint: later sections are not
	// selected, so they cannot drain the shared pools.
	if *fatal != nil {
		report.Sections = append(report.Sections, SectionReport{
			SectionName: name,
			Subject:     spec.Subject,
			State:       StatePending,
			Requested:   spec.TotalQuestions,
		})
		return
	}

	sr := SectionReport{
		SectionName: name,
		Subject:     spec.Subject,
		State:       StateSelecting,
		Requested:   spec.TotalQuestions,
	}

	sec, err := a.assembleLeaf(spec, name, &sr)
	if err != nil {
		sr.State = StateFailed
		sr.Error = err.Error()
		report.Sections = append(report.Sections, sr)
		if *fatal == nil {
			*fatal = err
		}
		return
	}

	sr.Selected = len(sec.Questions)
	switch {
	case sr.Shortfall > 0:
		sr.State = StatePartiallyFilled
	default:
		sr.State = StateSelected
	}

	// Distribution deltas are warnings, not errors.
	for _, d := range bank.AllDifficulties() {
		want := spec.DifficultyDistribution[d]
		got := sec.DifficultyDistribution[d]
		if want != got {
			sr.Warnings = append(sr.Warnings,
				fmt.Sprintf("difficulty %s: requested %d, achieved %d", d, want, got))
		}
	}

	report.Sections = append(report.Sections, sr)
	test.Sections = append(test.Sections, *sec)
}

func (a *Assembler) assembleLeaf(spec *blueprint.SectionSpec, name string, sr *SectionReport) (*AssembledSection, error) {
	sec := &AssembledSection{
		SectionName:            name,
		Subject:                spec.Subject,
		TotalQuestions:         spec.TotalQuestions,
		MarksPerQ:              spec.MarksPerQ,
		NegativeMarks:          spec.NegativeMarks,
		DifficultyDistribution: make(map[bank.Difficulty]int),
		TopicDistribution:      make(map[string]int),
	}

	if spec.Grouped {
		gs, err := a.groupSelector(spec.Subject)
		if err != nil {
			return nil, err
		}
		res := gs.SelectGroups(selection.GroupRequest{
			Target:          spec.TotalQuestions,
			Tolerance:       spec.GroupTolerance,
			Prefer:          spec.DifficultyDistribution,
			AllowDuplicates: a.opts.AllowDuplicates,
		})
		sr.Shortfall = res.Shortfall
		sr.GroupIDs = res.GroupIDs

		groups := res.Groups
		if a.opts.Shuffle {
			a.rng.Shuffle(len(groups), func(i, j int) {
				groups[i], groups[j] = groups[j], groups[i]
			})
		}
		for gi := range groups {
			g := &groups[gi]
			if len(g.Context) > 0 {
				if sec.Contexts == nil {
					sec.Contexts = make(map[string]json.RawMessage)
				}
				sec.Contexts[g.ID] = g.Context
			}
			for qi := range g.Questions {
				sec.Questions = append(sec.Questions, OutputQuestion{
					Question: g.Questions[qi],
					SetID:    g.ID,
				})
			}
		}
	} else {
		p, err := a.pool(spec.Subject)
		if err != nil {
			return nil, err
		}
		res := p.Select(selection.Request{
			Count:             spec.TotalQuestions,
			DifficultyWeights: spec.DifficultyDistribution,
			TopicWeights:      spec.TopicDistribution,
			AllowDuplicates:   a.opts.AllowDuplicates,
		})
		sr.Shortfall = res.Shortfall
		sr.Deficits = res.Deficits

		questions := res.Questions
		if a.opts.Shuffle {
			a.rng.Shuffle(len(questions), func(i, j int) {
				questions[i], questions[j] = questions[j], questions[i]
			})
		}
		for i := range questions {
			sec.Questions = append(sec.Questions, OutputQuestion{Question: questions[i]})
		}
	}

	for i := range sec.Questions {
		sec.Questions[i].Number = i + 1
		sec.DifficultyDistribution[sec.Questions[i].Difficulty]++
		sec.TopicDistribution[sec.Questions[i].Topic]++
	}
	return sec, nil
}

// rollback returns everything an aborted assembly drew, so the draws of
// a blueprint whose output is discarded do not starve later blueprints.
func (a *Assembler) rollback(test *AssembledTest) {
	for i := range test.Sections {
		sec := &test.Sections[i]
		var ids, setIDs []string
		for j := range sec.Questions {
			q := &sec.Questions[j]
			if q.SetID != "" {
				setIDs = append(setIDs, q.SetID)
			} else {
				ids = append(ids, q.ID)
			}
		}
		if p, ok := a.pools[sec.Subject]; ok && len(ids) > 0 {
			p.Release(ids)
		}
		if gs, ok := a.selectors[sec.Subject]; ok && len(setIDs) > 0 {
			gs.Release(setIDs)
		}
	}
}

// checkIntegrity verifies the final no-duplicate post-condition across
// the whole document.
func (a *Assembler) checkIntegrity(test *AssembledTest) error {
	seen := make(map[string]bool)
	for _, id := range test.QuestionIDs() {
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateQuestion, id)
		}
		seen[id] = true
	}
	return nil
}

// AssembleSeries builds n tests from one blueprint without resetting
// between them, so cross-test uniqueness holds for the whole series.
// Tests are numbered from 1; a fatal error stops the series and returns
// what was built so far.
func (a *Assembler) AssembleSeries(bp *blueprint.Blueprint, n int) ([]*AssembledTest, []*BuildReport, error) {
	var tests []*AssembledTest
	var reports []*BuildReport
	for i := 1; i <= n; i++ {
		test, report, err := a.assemble(bp, i)
		reports = append(reports, report)
		if err != nil {
			return tests, reports, fmt.Errorf("series test %d: %w", i, err)
		}
		tests = append(tests, test)
	}
	return tests, reports, nil
}
