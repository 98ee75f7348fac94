package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/assemble"
	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
	"github.com/abhisek/mockforge/internal/ui/theme"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Estimate how many unique tests each blueprint supports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		banks, err := bank.LoadDir(cfg.BankDir)
		if err != nil {
			return err
		}
		paths, err := filepath.Glob(filepath.Join(cfg.BlueprintDir, "*.json"))
		if err != nil {
			return fmt.Errorf("scan blueprint dir: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no blueprints found in %s", cfg.BlueprintDir)
		}
		sort.Strings(paths)

		asm := assemble.New(banks, assemble.Options{})
		for _, path := range paths {
			bp, err := blueprint.ParseFile(path)
			if err == nil {
				err = bp.Resolve(banks)
			}
			if err != nil {
				fmt.Println(theme.StatusFailed.Render("FAIL"), path)
				fmt.Println(theme.Hint.Render("  " + err.Error()))
				continue
			}

			report, err := asm.Capacity(bp)
			if err != nil {
				fmt.Println(theme.StatusFailed.Render("FAIL"), path)
				fmt.Println(theme.Hint.Render("  " + err.Error()))
				continue
			}

			fmt.Println(theme.Title.Render(report.TestID), theme.Subtitle.Render(path))
			fmt.Printf("  max unique tests: %s\n", renderMaxTests(report.MaxTests))
			if report.Bottleneck != "" {
				fmt.Printf("  bottleneck: %s\n", theme.Body.Render(report.Bottleneck))
			}
			for _, sc := range report.Subjects {
				fmt.Printf("  %s: %d\n", sc.Subject, sc.MaxTests)
				for _, d := range bank.AllDifficulties() {
					bucket, ok := sc.PerDifficulty[d]
					if !ok || bucket.Required == 0 {
						continue
					}
					fmt.Printf("    %-6s %d available / %d per test\n",
						d, bucket.Available, bucket.Required)
				}
			}
		}
		return nil
	},
}

func renderMaxTests(n int) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return theme.StatusFailed.Render(s)
	}
	return theme.StatusSuccess.Render(s)
}
