// Package pipeline drives a whole generation run: it discovers
// blueprints, loads banks, assembles each test and writes the output
// documents. One blueprint failing does not stop the others.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/mockforge/internal/assemble"
	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
	"github.com/abhisek/mockforge/internal/config"
	"github.com/abhisek/mockforge/internal/store"
)

// BlueprintResult is the outcome of one blueprint within a run.
type BlueprintResult struct {
	Path    string                  `json:"path"`
	TestIDs []string                `json:"test_ids,omitempty"`
	Status  assemble.Status         `json:"status"`
	Reports []*assemble.BuildReport `json:"reports,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// RunReport aggregates a whole run. It is written to the output
// directory as run_report.json.
type RunReport struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Seed       uint64            `json:"seed"`
	Status     assemble.Status   `json:"status"`
	Blueprints []BlueprintResult `json:"blueprints"`
	TestsBuilt int               `json:"tests_built"`
}

// Runner executes generation runs against a fixed configuration.
// The store is optional; a nil store skips history recording.
type Runner struct {
	cfg config.Config
	db  *store.Store
	log zerolog.Logger
}

// NewRunner creates a Runner. db may be nil.
func NewRunner(cfg config.Config, db *store.Store, log zerolog.Logger) *Runner {
	return &Runner{
		cfg: cfg,
		db:  db,
		log: log.With().Str("component", "pipeline").Logger(),
	}
}

// Run loads banks and blueprints, assembles every test and writes the
// outputs. It returns the run report; the returned error covers only
// run-level failures (no banks, unreadable directories), not individual
// blueprint failures, which land in the report.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		StartedAt: time.Now().UTC(),
		Seed:      r.cfg.Seed,
		Status:    assemble.StatusSuccess,
	}

	banks, err := bank.LoadDir(r.cfg.BankDir)
	if err != nil {
		return nil, fmt.Errorf("load banks: %w", err)
	}
	r.log.Info().
		Strs("subjects", banks.Subjects()).
		Msg("banks loaded")

	paths, err := discoverBlueprints(r.cfg.BlueprintDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no blueprints found in %s", r.cfg.BlueprintDir)
	}

	asm := assemble.New(banks, assemble.Options{
		Shuffle:         r.cfg.Shuffle,
		AllowDuplicates: r.cfg.AllowDuplicates,
		Seed:            r.cfg.Seed,
	})

	var record store.Run
	record.StartedAt = report.StartedAt
	record.Seed = r.cfg.Seed
	record.Blueprints = len(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.cfg.ResetBetween {
			asm.Reset()
		}

		res := r.runBlueprint(asm, path, &record)
		report.Blueprints = append(report.Blueprints, res)
		report.TestsBuilt += len(res.TestIDs)

		switch res.Status {
		case assemble.StatusFailed:
			report.Status = assemble.StatusFailed
		case assemble.StatusPartial:
			if report.Status == assemble.StatusSuccess {
				report.Status = assemble.StatusPartial
			}
		}
	}

	report.FinishedAt = time.Now().UTC()

	if err := writeJSON(filepath.Join(r.cfg.OutDir, "run_report.json"), report); err != nil {
		return nil, fmt.Errorf("write run report: %w", err)
	}

	if r.db != nil {
		record.TestsBuilt = report.TestsBuilt
		record.Status = string(report.Status)
		if err := r.db.AppendRun(ctx, &record); err != nil {
			r.log.Warn().Err(err).Msg("record run history")
		}
	}

	r.log.Info().
		Int("tests", report.TestsBuilt).
		Str("status", string(report.Status)).
		Msg("run finished")
	return report, nil
}

// runBlueprint assembles one blueprint (the whole series) and writes its
// outputs. Failures are captured in the result, never propagated.
func (r *Runner) runBlueprint(asm *assemble.Assembler, path string, record *store.Run) BlueprintResult {
	res := BlueprintResult{Path: path, Status: assemble.StatusSuccess}
	log := r.log.With().Str("blueprint", filepath.Base(path)).Logger()

	fail := func(err error) BlueprintResult {
		log.Error().Err(err).Msg("blueprint failed")
		res.Status = assemble.StatusFailed
		res.Error = err.Error()
		return res
	}

	bp, err := blueprint.ParseFile(path)
	if err != nil {
		return fail(err)
	}
	if err := bp.Resolve(asm.Banks()); err != nil {
		return fail(err)
	}

	var tests []*assemble.AssembledTest
	var reports []*assemble.BuildReport
	if r.cfg.Series > 1 {
		tests, reports, err = asm.AssembleSeries(bp, r.cfg.Series)
	} else {
		var test *assemble.AssembledTest
		var report *assemble.BuildReport
		test, report, err = asm.Assemble(bp)
		reports = append(reports, report)
		if test != nil {
			tests = append(tests, test)
		}
	}
	res.Reports = reports
	if err != nil {
		return fail(err)
	}

	for i, test := range tests {
		if err := r.writeTest(test, reports[i]); err != nil {
			return fail(err)
		}
		res.TestIDs = append(res.TestIDs, test.TestID)
		record.Tests = append(record.Tests, store.GeneratedTest{
			TestID:        test.TestID,
			InstanceID:    test.Metadata.InstanceID,
			Status:        string(reports[i].Status),
			QuestionCount: test.TotalQuestions,
			Shortfall:     totalShortfall(reports[i]),
			GeneratedAt:   test.Metadata.GeneratedAt,
		})

		if reports[i].Status == assemble.StatusPartial {
			res.Status = assemble.StatusPartial
			log.Warn().
				Str("test_id", test.TestID).
				Int("shortfall", totalShortfall(reports[i])).
				Msg("test assembled with shortfall")
		} else {
			log.Info().
				Str("test_id", test.TestID).
				Int("questions", test.TotalQuestions).
				Msg("test assembled")
		}
	}
	return res
}

// writeTest persists a test document and its sidecar build report.
func (r *Runner) writeTest(test *assemble.AssembledTest, report *assemble.BuildReport) error {
	base := filepath.Join(r.cfg.OutDir, test.TestID)
	if err := writeJSON(base+".json", test); err != nil {
		return fmt.Errorf("write test %s: %w", test.TestID, err)
	}
	if err := writeJSON(base+"_report.json", report); err != nil {
		return fmt.Errorf("write report %s: %w", test.TestID, err)
	}
	return nil
}

func discoverBlueprints(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan blueprint dir %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func totalShortfall(report *assemble.BuildReport) int {
	n := 0
	for i := range report.Sections {
		n += report.Sections[i].Shortfall
	}
	return n
}
