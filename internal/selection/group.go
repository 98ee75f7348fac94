package selection

import (
	"math"
	"math/rand/v2"

	"github.com/abhisek/mockforge/internal/bank"
)

// GroupRequest describes one draw of whole groups.
type GroupRequest struct {
	// Target is the desired total sub-question count.
	Target int

	// Tolerance is the accepted deviation from Target in either
	// direction. The packing stops once the running total is within
	// Tolerance of Target and never exceeds Target+Tolerance.
	Tolerance int

	// Prefer optionally biases candidate order toward groups whose
	// difficulty footprint is closest to this mix (counts out of
	// Target, as in a section's pro-rated distribution).
	Prefer map[bank.Difficulty]int

	// AllowDuplicates skips the consumed-set filter and leaves the
	// consumed set untouched.
	AllowDuplicates bool
}

// GroupResult is the outcome of a group draw. Questions holds the
// flattened sub-questions with each group's block contiguous and in its
// original internal order.
type GroupResult struct {
	Groups    []bank.Group
	Questions []bank.Question
	GroupIDs  []string

	Requested int // target sub-question count
	Achieved  int // sum of selected group sizes

	ByDifficulty map[bank.Difficulty]int

	// Shortfall is how far Achieved fell below Requested minus the
	// tolerance; zero when the target was met within tolerance.
	Shortfall int
}

// GroupSelector is a stateful sampler over one subject's atomic groups.
// Its consumed set is independent of any flat Pool for the same subject.
type GroupSelector struct {
	bank     *bank.Bank
	rng      *rand.Rand
	consumed map[string]bool
}

// NewGroupSelector creates a selector over a grouped bank.
func NewGroupSelector(b *bank.Bank, rng *rand.Rand) *GroupSelector {
	return &GroupSelector{
		bank:     b,
		rng:      rng,
		consumed: make(map[string]bool),
	}
}

// Reset clears the consumed set for this subject's groups.
func (gs *GroupSelector) Reset() {
	gs.consumed = make(map[string]bool)
}

// ConsumedCount returns the number of groups consumed this epoch.
func (gs *GroupSelector) ConsumedCount() int { return len(gs.consumed) }

// Release returns previously consumed set ids to the selector, undoing
// the draws of an aborted assembly. Unknown ids are ignored.
func (gs *GroupSelector) Release(ids []string) {
	for _, id := range ids {
		delete(gs.consumed, id)
	}
}

// AvailableGroups returns the number of unconsumed groups.
func (gs *GroupSelector) AvailableGroups() int {
	n := 0
	for i := range gs.bank.Groups {
		if !gs.consumed[gs.bank.Groups[i].ID] {
			n++
		}
	}
	return n
}

// SelectGroups packs whole groups toward the requested sub-question
// count. Candidates are visited in seeded-random order, biased by the
// footprint preference when one is given; a candidate that would push
// the running total beyond Target+Tolerance is skipped in favor of
// smaller groups later in the order (first-fit, closeness not
// optimality). Groups are never split. If no combination reaches
// Target-Tolerance the best achieved packing is returned with the gap
// recorded as Shortfall.
func (gs *GroupSelector) SelectGroups(req GroupRequest) *GroupResult {
	res := &GroupResult{
		Requested:    req.Target,
		ByDifficulty: make(map[bank.Difficulty]int),
	}
	if req.Target <= 0 {
		return res
	}

	order := gs.candidateOrder(req)

	running := 0
	for _, i := range order {
		if running >= req.Target-req.Tolerance {
			break
		}
		g := &gs.bank.Groups[i]
		if running+g.Size() > req.Target+req.Tolerance {
			continue
		}
		res.Groups = append(res.Groups, *g)
		res.GroupIDs = append(res.GroupIDs, g.ID)
		running += g.Size()
	}

	for i := range res.Groups {
		g := &res.Groups[i]
		res.Questions = append(res.Questions, g.Questions...)
		for j := range g.Questions {
			res.ByDifficulty[g.Questions[j].Difficulty]++
		}
	}
	res.Achieved = running

	if running < req.Target-req.Tolerance {
		res.Shortfall = req.Target - req.Tolerance - running
	}

	if !req.AllowDuplicates {
		for _, id := range res.GroupIDs {
			gs.consumed[id] = true
		}
	}
	return res
}

// candidateOrder shuffles the eligible groups and, when a footprint
// preference is given, stably reorders them by footprint distance so
// equal-distance groups keep their shuffled relative order.
func (gs *GroupSelector) candidateOrder(req GroupRequest) []int {
	var candidates []int
	for i := range gs.bank.Groups {
		if !req.AllowDuplicates && gs.consumed[gs.bank.Groups[i].ID] {
			continue
		}
		candidates = append(candidates, i)
	}

	gs.rng.Shuffle(len(candidates), func(a, b int) {
		candidates[a], candidates[b] = candidates[b], candidates[a]
	})

	if req.Prefer == nil {
		return candidates
	}

	dist := make(map[int]float64, len(candidates))
	for _, i := range candidates {
		dist[i] = footprintDistance(&gs.bank.Groups[i], req.Prefer, req.Target)
	}
	// Insertion sort keeps the shuffle order stable among ties.
	for a := 1; a < len(candidates); a++ {
		for b := a; b > 0 && dist[candidates[b]] < dist[candidates[b-1]]; b-- {
			candidates[b], candidates[b-1] = candidates[b-1], candidates[b]
		}
	}
	return candidates
}

// footprintDistance measures how far a group's difficulty mix is from
// the preferred mix, comparing fractions so group size does not skew the
// score.
func footprintDistance(g *bank.Group, prefer map[bank.Difficulty]int, target int) float64 {
	size := g.Size()
	if size == 0 || target == 0 {
		return math.Inf(1)
	}
	fp := g.Footprint()

	var d float64
	for _, level := range bank.AllDifficulties() {
		have := float64(fp[level]) / float64(size)
		want := float64(prefer[level]) / float64(target)
		d += math.Abs(have - want)
	}
	return d
}
