package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/config"
	"github.com/abhisek/mockforge/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "mockforge",
	Short: "Mock test assembly engine",
	Long: "Mockforge assembles gradable mock tests from question banks and\n" +
		"blueprint documents, with constrained difficulty sampling and\n" +
		"cross-test duplicate avoidance.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("banks", "", "Directory of question bank files (overrides MOCKFORGE_BANK_DIR)")
	pf.String("blueprints", "", "Directory of blueprint files (overrides MOCKFORGE_BLUEPRINT_DIR)")
	pf.String("out", "", "Output directory (overrides MOCKFORGE_OUT_DIR)")
	pf.String("db", "", "Path to SQLite history database (overrides MOCKFORGE_DB)")
	pf.Uint64("seed", 0, "Random seed, 0 derives one from the clock")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: pretty or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(capacityCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration: defaults, then environment, then
// flags (highest priority).
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("banks"); v != "" {
		cfg.BankDir = v
	}
	if v, _ := flags.GetString("blueprints"); v != "" {
		cfg.BlueprintDir = v
	}
	if v, _ := flags.GetString("out"); v != "" {
		cfg.OutDir = v
	}
	if v, _ := flags.GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then MOCKFORGE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
