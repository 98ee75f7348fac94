// Package selection implements stateful, seedable sampling of questions
// and question groups from loaded banks. A pool owns the consumed-id set
// for its subject; nothing here touches global state, and all randomness
// flows from the rand source injected at construction.
package selection

import (
	"math/rand/v2"
	"sort"

	"github.com/abhisek/mockforge/internal/bank"
)

// Request describes one draw from a flat pool.
type Request struct {
	// Count is the target number of questions. Zero is valid and
	// yields an empty result.
	Count int

	// DifficultyWeights maps difficulty to desired count. The caller
	// rounds; weights are expected to sum to Count.
	DifficultyWeights map[bank.Difficulty]int

	// TopicWeights optionally stratifies each difficulty bucket across
	// topics, proportional to the listed counts.
	TopicWeights map[string]int

	// AllowDuplicates skips the consumed-set filter and leaves the
	// consumed set untouched.
	AllowDuplicates bool
}

// Result is the outcome of one draw.
type Result struct {
	Questions []bank.Question

	Requested int
	Selected  int

	// ByDifficulty and ByTopic are the achieved distributions.
	ByDifficulty map[bank.Difficulty]int
	ByTopic      map[string]int

	// Deficits records, per difficulty, how far the bucket fell short
	// of its weight before redistribution.
	Deficits map[bank.Difficulty]int

	// Shortfall is Requested minus Selected after redistribution.
	Shortfall int
}

// redistributionOrder is the bucket priority when a deficit is topped up
// from other difficulties. Harder buckets absorb deficits first: exams
// tolerate difficulty substitution better than count shortfall.
var redistributionOrder = []bank.Difficulty{
	bank.DifficultyHard, bank.DifficultyMedium, bank.DifficultyEasy,
}

// Pool is a stateful sampler over one subject's flat questions.
// Not safe for concurrent use; the pipeline is single-threaded and a
// concurrent caller must serialize access per subject.
type Pool struct {
	bank     *bank.Bank
	rng      *rand.Rand
	consumed map[string]bool
}

// NewPool creates a pool over a flat bank using the given rand source.
func NewPool(b *bank.Bank, rng *rand.Rand) *Pool {
	return &Pool{
		bank:     b,
		rng:      rng,
		consumed: make(map[string]bool),
	}
}

// Reset clears the consumed set, starting a fresh consumption epoch for
// this subject only.
func (p *Pool) Reset() {
	p.consumed = make(map[string]bool)
}

// ConsumedCount returns the number of identifiers consumed this epoch.
func (p *Pool) ConsumedCount() int { return len(p.consumed) }

// Release returns previously consumed identifiers to the pool, undoing
// the draws of an aborted assembly. Unknown ids are ignored.
func (p *Pool) Release(ids []string) {
	for _, id := range ids {
		delete(p.consumed, id)
	}
}

// Available returns the number of unconsumed questions at a difficulty.
func (p *Pool) Available(d bank.Difficulty) int {
	n := 0
	for _, i := range p.bank.Index().ByDifficulty[d] {
		if !p.consumed[p.bank.Questions[i].ID] {
			n++
		}
	}
	return n
}

// Select draws up to req.Count questions without replacement, honoring
// the difficulty weights and, when given, the topic weights as a
// secondary stratification. Shortage never errors: a bucket that cannot
// be filled records a deficit, the deficit is redistributed across the
// other buckets in Hard-Medium-Easy priority, and whatever remains is
// reported as the result's Shortfall.
func (p *Pool) Select(req Request) *Result {
	res := &Result{
		Requested:    req.Count,
		ByDifficulty: make(map[bank.Difficulty]int),
		ByTopic:      make(map[string]int),
		Deficits:     make(map[bank.Difficulty]int),
	}
	if req.Count <= 0 {
		return res
	}

	taken := make(map[string]bool) // ids picked within this call

	// Primary pass: fill each bucket up to its weight.
	for _, d := range bank.AllDifficulties() {
		weight := req.DifficultyWeights[d]
		if weight <= 0 {
			continue
		}
		picked := p.drawBucket(d, weight, req, taken)
		res.add(picked)
		if deficit := weight - len(picked); deficit > 0 {
			res.Deficits[d] = deficit
		}
	}

	// Redistribution pass: top up remaining demand from other buckets.
	for _, d := range redistributionOrder {
		missing := req.Count - res.Selected
		if missing <= 0 {
			break
		}
		picked := p.drawBucket(d, missing, req, taken)
		res.add(picked)
	}

	res.Shortfall = req.Count - res.Selected

	if !req.AllowDuplicates {
		for id := range taken {
			p.consumed[id] = true
		}
	}
	return res
}

func (r *Result) add(qs []bank.Question) {
	for i := range qs {
		r.ByDifficulty[qs[i].Difficulty]++
		r.ByTopic[qs[i].Topic]++
	}
	r.Questions = append(r.Questions, qs...)
	r.Selected = len(r.Questions)
}

// drawBucket draws up to want questions of one difficulty, stratified
// across topics when the request carries topic weights.
func (p *Pool) drawBucket(d bank.Difficulty, want int, req Request, taken map[string]bool) []bank.Question {
	if len(req.TopicWeights) == 0 {
		return p.sample(p.eligible(d, "", req, taken), want, req, taken)
	}

	topics := make([]string, 0, len(req.TopicWeights))
	topicTotal := 0
	for t, n := range req.TopicWeights {
		topics = append(topics, t)
		topicTotal += n
	}
	sort.Strings(topics)

	var picked []bank.Question

	// Proportional share per topic within this bucket.
	for _, t := range topics {
		if len(picked) >= want {
			break
		}
		share := (req.TopicWeights[t]*want + topicTotal/2) / topicTotal
		if share > want-len(picked) {
			share = want - len(picked)
		}
		if share <= 0 {
			continue
		}
		picked = append(picked, p.sample(p.eligible(d, t, req, taken), share, req, taken)...)
	}

	// Topic shares that could not be met fall back to any topic in the
	// same bucket.
	if len(picked) < want {
		picked = append(picked, p.sample(p.eligible(d, "", req, taken), want-len(picked), req, taken)...)
	}
	return picked
}

// eligible collects the candidate questions of one difficulty (and
// optionally one topic) that are neither consumed nor taken this call.
func (p *Pool) eligible(d bank.Difficulty, topic string, req Request, taken map[string]bool) []int {
	idx := p.bank.Index()
	var positions []int
	if topic == "" {
		positions = idx.ByDifficulty[d]
	} else {
		positions = idx.ByTopicDifficulty[topic][d]
	}

	eligible := make([]int, 0, len(positions))
	for _, i := range positions {
		id := p.bank.Questions[i].ID
		if taken[id] {
			continue
		}
		if !req.AllowDuplicates && p.consumed[id] {
			continue
		}
		eligible = append(eligible, i)
	}
	return eligible
}

// sample draws up to n random candidates without replacement and marks
// them taken for the duration of the call.
func (p *Pool) sample(candidates []int, n int, req Request, taken map[string]bool) []bank.Question {
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return nil
	}

	shuffled := make([]int, len(candidates))
	copy(shuffled, candidates)
	p.rng.Shuffle(len(shuffled), func(a, b int) {
		shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
	})

	picked := make([]bank.Question, 0, n)
	for _, i := range shuffled[:n] {
		q := p.bank.Questions[i]
		taken[q.ID] = true
		picked = append(picked, q)
	}
	return picked
}
