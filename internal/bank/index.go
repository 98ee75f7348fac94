package bank

import "sort"

// Index provides constant-time candidate lookup for selection. Slices
// hold positions into the bank's Questions or Groups; the bank itself
// stays the single owner of the data.
type Index struct {
	ByDifficulty       map[Difficulty][]int
	ByTopic            map[string][]int
	ByTopicDifficulty  map[string]map[Difficulty][]int
	GroupsByDifficulty map[Difficulty][]int
}

func buildIndex(b *Bank) *Index {
	idx := &Index{
		ByDifficulty:       make(map[Difficulty][]int),
		ByTopic:            make(map[string][]int),
		ByTopicDifficulty:  make(map[string]map[Difficulty][]int),
		GroupsByDifficulty: make(map[Difficulty][]int),
	}

	for i := range b.Questions {
		q := &b.Questions[i]
		idx.ByDifficulty[q.Difficulty] = append(idx.ByDifficulty[q.Difficulty], i)
		idx.ByTopic[q.Topic] = append(idx.ByTopic[q.Topic], i)
		byDiff, ok := idx.ByTopicDifficulty[q.Topic]
		if !ok {
			byDiff = make(map[Difficulty][]int)
			idx.ByTopicDifficulty[q.Topic] = byDiff
		}
		byDiff[q.Difficulty] = append(byDiff[q.Difficulty], i)
	}

	for i := range b.Groups {
		d := b.Groups[i].Difficulty()
		idx.GroupsByDifficulty[d] = append(idx.GroupsByDifficulty[d], i)
	}

	return idx
}

// Stats summarizes a bank for capacity analysis and reporting.
type Stats struct {
	Subject      string
	Kind         Kind
	Total        int
	ByDifficulty map[Difficulty]int
	ByTopic      map[string]int
	GroupCount   int
	GroupSizes   []int
}

// Stats computes summary statistics for the bank.
func (b *Bank) Stats() Stats {
	st := Stats{
		Subject:      b.Subject,
		Kind:         b.Kind,
		Total:        b.QuestionCount(),
		ByDifficulty: make(map[Difficulty]int),
		ByTopic:      make(map[string]int),
	}

	switch b.Kind {
	case KindGrouped:
		st.GroupCount = len(b.Groups)
		for i := range b.Groups {
			g := &b.Groups[i]
			st.GroupSizes = append(st.GroupSizes, g.Size())
			for j := range g.Questions {
				st.ByDifficulty[g.Questions[j].Difficulty]++
				st.ByTopic[g.Questions[j].Topic]++
			}
		}
		sort.Ints(st.GroupSizes)
	default:
		for i := range b.Questions {
			st.ByDifficulty[b.Questions[i].Difficulty]++
			st.ByTopic[b.Questions[i].Topic]++
		}
	}

	return st
}

// Topics returns the distinct topics present in the bank, sorted.
func (b *Bank) Topics() []string {
	idx := b.Index()
	topics := make([]string, 0, len(idx.ByTopic))
	for t := range idx.ByTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
