package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/assemble"
	"github.com/abhisek/mockforge/internal/logger"
	"github.com/abhisek/mockforge/internal/pipeline"
	"github.com/abhisek/mockforge/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble tests from every blueprint",
	Long: "Load all banks, assemble every blueprint in the blueprint directory\n" +
		"and write the test documents, build reports and run report to the\n" +
		"output directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("count") {
			cfg.Series, _ = flags.GetInt("count")
			if cfg.Series < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
		}
		if flags.Changed("shuffle") {
			cfg.Shuffle, _ = flags.GetBool("shuffle")
		}
		if flags.Changed("allow-duplicates") {
			cfg.AllowDuplicates, _ = flags.GetBool("allow-duplicates")
		}
		if flags.Changed("reset-between") {
			cfg.ResetBetween, _ = flags.GetBool("reset-between")
		}
		if cfg.Seed == 0 {
			cfg.Seed = uint64(time.Now().UnixNano())
		}

		log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

		var db *store.Store
		if noHistory, _ := flags.GetBool("no-history"); !noHistory {
			dbPath, err := resolveDBPath(cmd)
			if err != nil {
				return fmt.Errorf("resolve DB path: %w", err)
			}
			if db, err = store.Open(dbPath); err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer db.Close()
		}

		runner := pipeline.NewRunner(cfg, db, log)
		report, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}
		if report.Status == assemble.StatusFailed {
			return fmt.Errorf("%d of %d blueprints failed",
				countFailed(report), len(report.Blueprints))
		}
		return nil
	},
}

func countFailed(report *pipeline.RunReport) int {
	n := 0
	for i := range report.Blueprints {
		if report.Blueprints[i].Status == assemble.StatusFailed {
			n++
		}
	}
	return n
}

func init() {
	runCmd.Flags().Int("count", 1, "Number of tests to generate per blueprint")
	runCmd.Flags().Bool("shuffle", true, "Shuffle question order within sections")
	runCmd.Flags().Bool("allow-duplicates", false, "Allow questions to repeat across tests")
	runCmd.Flags().Bool("reset-between", false, "Reset duplicate tracking between blueprints")
	runCmd.Flags().Bool("no-history", false, "Skip recording the run in the history database")
}
