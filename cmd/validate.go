package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
	"github.com/abhisek/mockforge/internal/ui/theme"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate banks and blueprints without assembling",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		failures := 0

		banks := bank.NewBankSet()
		bankPaths, err := filepath.Glob(filepath.Join(cfg.BankDir, "*.json"))
		if err != nil {
			return fmt.Errorf("scan bank dir: %w", err)
		}
		sort.Strings(bankPaths)
		for _, path := range bankPaths {
			b, err := bank.Load(path)
			if err == nil {
				err = banks.Add(b)
			}
			if err != nil {
				failures++
				fmt.Println(theme.StatusFailed.Render("FAIL"), path)
				fmt.Println(theme.Hint.Render("  " + err.Error()))
				continue
			}
			fmt.Println(theme.StatusSuccess.Render("OK  "), path,
				theme.Subtitle.Render(fmt.Sprintf("(%s, %s, %d questions)",
					b.Subject, b.Kind, b.QuestionCount())))
		}

		bpPaths, err := filepath.Glob(filepath.Join(cfg.BlueprintDir, "*.json"))
		if err != nil {
			return fmt.Errorf("scan blueprint dir: %w", err)
		}
		sort.Strings(bpPaths)
		for _, path := range bpPaths {
			bp, err := blueprint.ParseFile(path)
			if err == nil {
				err = bp.Resolve(banks)
			}
			if err != nil {
				failures++
				fmt.Println(theme.StatusFailed.Render("FAIL"), path)
				fmt.Println(theme.Hint.Render("  " + err.Error()))
				continue
			}
			fmt.Println(theme.StatusSuccess.Render("OK  "), path,
				theme.Subtitle.Render(fmt.Sprintf("(%s, %d questions)",
					bp.TestID, bp.TotalQuestions())))
		}

		if len(bankPaths) == 0 && len(bpPaths) == 0 {
			return fmt.Errorf("nothing to validate in %s or %s", cfg.BankDir, cfg.BlueprintDir)
		}
		if failures > 0 {
			return fmt.Errorf("%d file(s) failed validation", failures)
		}
		return nil
	},
}
