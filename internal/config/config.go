// Package config resolves runtime configuration from flags, environment
// variables and an optional .env file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration.
type Config struct {
	// BankDir is the directory scanned for *.json question banks.
	BankDir string

	// BlueprintDir is the directory scanned for *.json blueprints.
	BlueprintDir string

	// OutDir receives assembled tests and build reports.
	OutDir string

	// DBPath is the run-history database file. Empty means the
	// default XDG location.
	DBPath string

	// Seed feeds the random source. Zero means derive from the clock.
	Seed uint64

	// Series is the number of tests generated per blueprint.
	Series int

	// Shuffle permutes question order within sections.
	Shuffle bool

	// AllowDuplicates disables cross-test uniqueness tracking.
	AllowDuplicates bool

	// ResetBetween clears consumption state between blueprints, so
	// each blueprint draws from the full pools.
	ResetBetween bool

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string

	// LogFormat selects "pretty" console output or "json".
	LogFormat string
}

// Default returns a Config with working defaults for a local run.
func Default() Config {
	return Config{
		BankDir:      "banks",
		BlueprintDir: "blueprints",
		OutDir:       "output",
		Series:       1,
		Shuffle:      true,
		LogLevel:     "info",
		LogFormat:    "pretty",
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values. A .env file in the working directory is
// loaded first if present.
func FromEnv() (Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()
	cfg.BankDir = getEnv("MOCKFORGE_BANK_DIR", cfg.BankDir)
	cfg.BlueprintDir = getEnv("MOCKFORGE_BLUEPRINT_DIR", cfg.BlueprintDir)
	cfg.OutDir = getEnv("MOCKFORGE_OUT_DIR", cfg.OutDir)
	cfg.DBPath = getEnv("MOCKFORGE_DB", cfg.DBPath)
	cfg.LogLevel = getEnv("MOCKFORGE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("MOCKFORGE_LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("MOCKFORGE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("MOCKFORGE_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv("MOCKFORGE_SERIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("MOCKFORGE_SERIES: expected a positive integer, got %q", v)
		}
		cfg.Series = n
	}
	var err error
	if cfg.Shuffle, err = getEnvBool("MOCKFORGE_SHUFFLE", cfg.Shuffle); err != nil {
		return cfg, err
	}
	if cfg.AllowDuplicates, err = getEnvBool("MOCKFORGE_ALLOW_DUPLICATES", cfg.AllowDuplicates); err != nil {
		return cfg, err
	}
	if cfg.ResetBetween, err = getEnvBool("MOCKFORGE_RESET_BETWEEN", cfg.ResetBetween); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks directory settings that every command needs.
func (c Config) Validate() error {
	if c.BankDir == "" {
		return fmt.Errorf("bank directory must not be empty")
	}
	if c.BlueprintDir == "" {
		return fmt.Errorf("blueprint directory must not be empty")
	}
	if c.Series < 1 {
		return fmt.Errorf("series count must be at least 1, got %d", c.Series)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: expected a boolean, got %q", key, v)
	}
	return b, nil
}
