package blueprint

import "github.com/abhisek/mockforge/internal/bank"

// Default difficulty mix applied when a section does not declare one,
// in percent of the section's total.
const (
	defaultEasyPct   = 30
	defaultMediumPct = 50
	defaultHardPct   = 20
)

// DefaultSplit builds the default Easy/Medium/Hard distribution for a
// section of the given size. Rounding remainders land on Medium.
func DefaultSplit(total int) map[bank.Difficulty]int {
	easy := roundPct(total, defaultEasyPct)
	medium := roundPct(total, defaultMediumPct)
	hard := roundPct(total, defaultHardPct)

	if diff := total - (easy + medium + hard); diff != 0 {
		medium += diff
		if medium < 0 {
			medium = 0
		}
	}
	return map[bank.Difficulty]int{
		bank.DifficultyEasy:   easy,
		bank.DifficultyMedium: medium,
		bank.DifficultyHard:   hard,
	}
}

func roundPct(total, pct int) int {
	return (total*pct + 50) / 100
}

// ProRate scales a difficulty distribution down to a sub-target. Used
// when a slice of a section (one topic, or the grouped portion) needs a
// proportional share of the section-level distribution. The rounding
// remainder is applied to Medium, floored at zero.
func ProRate(dist map[bank.Difficulty]int, total, subTotal int) map[bank.Difficulty]int {
	out := make(map[bank.Difficulty]int, 3)
	if total <= 0 || subTotal <= 0 {
		for _, d := range bank.AllDifficulties() {
			out[d] = 0
		}
		return out
	}

	allocated := 0
	for _, d := range bank.AllDifficulties() {
		share := (dist[d]*subTotal + total/2) / total
		out[d] = share
		allocated += share
	}

	if diff := subTotal - allocated; diff != 0 {
		m := out[bank.DifficultyMedium] + diff
		if m < 0 {
			m = 0
		}
		out[bank.DifficultyMedium] = m
	}
	return out
}
