package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/assemble"
	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/blueprint"
	"github.com/abhisek/mockforge/internal/ui/theme"
)

var previewCmd = &cobra.Command{
	Use:   "preview <blueprint.json>",
	Short: "Assemble one blueprint and print a summary without writing files",
	Long: "Dry-run assembly for a single blueprint. Shows the section layout,\n" +
		"achieved distributions and any shortfall, but writes nothing.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Seed == 0 {
			cfg.Seed = uint64(time.Now().UnixNano())
		}

		banks, err := bank.LoadDir(cfg.BankDir)
		if err != nil {
			return err
		}
		bp, err := blueprint.ParseFile(args[0])
		if err != nil {
			return err
		}
		if err := bp.Resolve(banks); err != nil {
			return err
		}

		asm := assemble.New(banks, assemble.Options{
			Shuffle: cfg.Shuffle,
			Seed:    cfg.Seed,
		})
		test, report, err := asm.Assemble(bp)
		if err != nil {
			return err
		}

		fmt.Println(theme.Title.Render(test.TestName),
			theme.Subtitle.Render(fmt.Sprintf("(%s, seed %d)", test.TestID, cfg.Seed)))
		fmt.Printf("%d questions, %.1f marks, %d minutes\n\n",
			test.TotalQuestions, test.TotalMarks, test.DurationMinutes)

		for i, sec := range test.Sections {
			sr := report.Sections[i]
			fmt.Println(theme.TableHeader.Render(sec.SectionName),
				renderState(sr.State))
			fmt.Printf("  %d/%d questions", sr.Selected, sr.Requested)
			if sr.Shortfall > 0 {
				fmt.Printf(", %s", theme.StatusPartial.Render(
					fmt.Sprintf("shortfall %d", sr.Shortfall)))
			}
			fmt.Println()
			for _, d := range bank.AllDifficulties() {
				if n := sec.DifficultyDistribution[d]; n > 0 {
					fmt.Printf("  %-6s %d\n", d, n)
				}
			}
			for _, w := range sr.Warnings {
				fmt.Println(theme.Hint.Render("  " + w))
			}
		}

		fmt.Println()
		fmt.Println("status:", renderStatus(report.Status))
		return nil
	},
}

func renderState(s assemble.SectionState) string {
	switch s {
	case assemble.StateSelected:
		return theme.StatusSuccess.Render(string(s))
	case assemble.StatePartiallyFilled:
		return theme.StatusPartial.Render(string(s))
	default:
		return theme.StatusFailed.Render(string(s))
	}
}

func renderStatus(s assemble.Status) string {
	switch s {
	case assemble.StatusSuccess:
		return theme.StatusSuccess.Render(string(s))
	case assemble.StatusPartial:
		return theme.StatusPartial.Render(string(s))
	default:
		return theme.StatusFailed.Render(string(s))
	}
}
