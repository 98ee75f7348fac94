package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockforge/internal/bank"
	"github.com/abhisek/mockforge/internal/store"
	"github.com/abhisek/mockforge/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bank inventory and recent run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		banks, err := bank.LoadDir(cfg.BankDir)
		if err != nil {
			return err
		}

		fmt.Println(theme.Title.Render("Banks"))
		for _, subject := range banks.Subjects() {
			b, _ := banks.Get(subject)
			st := b.Stats()
			fmt.Printf("%s %s\n",
				theme.TableHeader.Render(subject),
				theme.Subtitle.Render(fmt.Sprintf("(%s, %d questions)", b.Kind, st.Total)))
			for _, d := range bank.AllDifficulties() {
				fmt.Printf("  %-6s %d\n", d, st.ByDifficulty[d])
			}
			if b.Kind == bank.KindGrouped {
				fmt.Printf("  %d sets, sizes %v\n", st.GroupCount, st.GroupSizes)
			}
			for _, topic := range b.Topics() {
				fmt.Println(theme.Hint.Render(fmt.Sprintf("  %s: %d", topic, st.ByTopic[topic])))
			}
		}

		limit, _ := cmd.Flags().GetInt("runs")
		if limit == 0 {
			return nil
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println(theme.Title.Render("Recent runs"))
		for _, r := range runs {
			fmt.Printf("%s  %s  %d blueprints, %d tests  %s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				renderRunStatus(r.Status),
				r.Blueprints, r.TestsBuilt,
				theme.Subtitle.Render(fmt.Sprintf("seed %d", r.Seed)))
		}
		return nil
	},
}

func renderRunStatus(s string) string {
	switch s {
	case "success":
		return theme.StatusSuccess.Render(s)
	case "partial":
		return theme.StatusPartial.Render(s)
	default:
		return theme.StatusFailed.Render(s)
	}
}

func init() {
	statsCmd.Flags().Int("runs", 5, "Number of recent runs to show, 0 hides history")
}
