package selection

import (
	"fmt"
	"testing"

	"github.com/abhisek/mockforge/internal/bank"
)

// groupedBank builds a grouped bank with one group per entry in sizes,
// all Medium unless a difficulty override is supplied per group.
func groupedBank(sizes []int, difficulties ...bank.Difficulty) *bank.Bank {
	b := &bank.Bank{Subject: "quant", Kind: bank.KindGrouped}
	for gi, size := range sizes {
		d := bank.DifficultyMedium
		if gi < len(difficulties) {
			d = difficulties[gi]
		}
		g := bank.Group{ID: fmt.Sprintf("SET%02d", gi+1)}
		for qi := 0; qi < size; qi++ {
			g.Questions = append(g.Questions, bank.Question{
				ID:            fmt.Sprintf("SET%02d_Q%d", gi+1, qi+1),
				Prompt:        "prompt",
				Options:       map[string]string{"A": "1", "B": "2"},
				CorrectAnswer: "A",
				Difficulty:    d,
				Topic:         "Data Interpretation",
				Subject:       "quant",
			})
		}
		b.Groups = append(b.Groups, g)
	}
	return b
}

func TestSelectGroupsWithinTolerance(t *testing.T) {
	// Groups of sizes [3,4,5,3], target 10, tolerance 1: the packing
	// must land between 9 and 11, whatever the seed.
	for seed := uint64(1); seed <= 20; seed++ {
		gs := NewGroupSelector(groupedBank([]int{3, 4, 5, 3}), seededRand(seed))
		res := gs.SelectGroups(GroupRequest{Target: 10, Tolerance: 1})

		if res.Achieved < 9 || res.Achieved > 11 {
			t.Errorf("seed %d: Achieved = %d, want within [9,11]", seed, res.Achieved)
		}
		if res.Shortfall != 0 {
			t.Errorf("seed %d: Shortfall = %d, want 0", seed, res.Shortfall)
		}
		if len(res.Questions) != res.Achieved {
			t.Errorf("seed %d: %d questions for achieved %d", seed, len(res.Questions), res.Achieved)
		}
	}
}

func TestSelectGroupsNeverSplits(t *testing.T) {
	gs := NewGroupSelector(groupedBank([]int{3, 4, 5, 3}), seededRand(9))
	res := gs.SelectGroups(GroupRequest{Target: 10, Tolerance: 1})

	// Flattened questions must be group-contiguous, in internal order.
	pos := 0
	for _, g := range res.Groups {
		for _, q := range g.Questions {
			if res.Questions[pos].ID != q.ID {
				t.Fatalf("position %d: %s, want %s", pos, res.Questions[pos].ID, q.ID)
			}
			pos++
		}
	}
	if pos != len(res.Questions) {
		t.Errorf("flattened count %d, want %d", len(res.Questions), pos)
	}
}

func TestSelectGroupsShortfall(t *testing.T) {
	gs := NewGroupSelector(groupedBank([]int{3, 3}), seededRand(1))
	res := gs.SelectGroups(GroupRequest{Target: 20, Tolerance: 2})

	if res.Achieved != 6 {
		t.Errorf("Achieved = %d, want 6", res.Achieved)
	}
	if res.Shortfall != 12 {
		t.Errorf("Shortfall = %d, want 12 (target 20 - tolerance 2 - achieved 6)", res.Shortfall)
	}
}

func TestSelectGroupsZeroTarget(t *testing.T) {
	gs := NewGroupSelector(groupedBank([]int{3, 4}), seededRand(1))
	res := gs.SelectGroups(GroupRequest{Target: 0, Tolerance: 1})

	if len(res.Groups) != 0 || res.Shortfall != 0 {
		t.Errorf("zero target: groups=%d shortfall=%d", len(res.Groups), res.Shortfall)
	}
	if gs.ConsumedCount() != 0 {
		t.Errorf("zero target consumed %d groups", gs.ConsumedCount())
	}
}

func TestSelectGroupsConsumption(t *testing.T) {
	gs := NewGroupSelector(groupedBank([]int{5, 5, 5, 5}), seededRand(3))

	first := gs.SelectGroups(GroupRequest{Target: 10, Tolerance: 0})
	second := gs.SelectGroups(GroupRequest{Target: 10, Tolerance: 0})

	seen := make(map[string]bool)
	for _, id := range first.GroupIDs {
		seen[id] = true
	}
	for _, id := range second.GroupIDs {
		if seen[id] {
			t.Errorf("group %s selected twice without reset", id)
		}
	}

	// All four consumed; a third draw comes back empty with shortfall.
	third := gs.SelectGroups(GroupRequest{Target: 10, Tolerance: 0})
	if third.Achieved != 0 || third.Shortfall != 10 {
		t.Errorf("exhausted draw: achieved=%d shortfall=%d, want 0/10", third.Achieved, third.Shortfall)
	}

	gs.Reset()
	if gs.AvailableGroups() != 4 {
		t.Errorf("AvailableGroups() after Reset = %d, want 4", gs.AvailableGroups())
	}
}

func TestSelectGroupsFootprintPreference(t *testing.T) {
	// One Hard group and three Easy groups, all size 5. A Hard-heavy
	// preference must pick the Hard group first.
	b := groupedBank([]int{5, 5, 5, 5},
		bank.DifficultyEasy, bank.DifficultyHard, bank.DifficultyEasy, bank.DifficultyEasy)

	prefer := map[bank.Difficulty]int{bank.DifficultyHard: 5}
	for seed := uint64(1); seed <= 10; seed++ {
		gs := NewGroupSelector(b, seededRand(seed))
		res := gs.SelectGroups(GroupRequest{Target: 5, Tolerance: 0, Prefer: prefer})

		if len(res.GroupIDs) != 1 || res.GroupIDs[0] != "SET02" {
			t.Errorf("seed %d: selected %v, want [SET02]", seed, res.GroupIDs)
		}
	}
}

func TestSelectGroupsReproducible(t *testing.T) {
	b := groupedBank([]int{3, 4, 5, 3, 4})

	first := NewGroupSelector(b, seededRand(11)).SelectGroups(GroupRequest{Target: 10, Tolerance: 1})
	second := NewGroupSelector(b, seededRand(11)).SelectGroups(GroupRequest{Target: 10, Tolerance: 1})

	if len(first.GroupIDs) != len(second.GroupIDs) {
		t.Fatalf("draw sizes differ: %v vs %v", first.GroupIDs, second.GroupIDs)
	}
	for i := range first.GroupIDs {
		if first.GroupIDs[i] != second.GroupIDs[i] {
			t.Errorf("position %d: %s vs %s", i, first.GroupIDs[i], second.GroupIDs[i])
		}
	}
}
