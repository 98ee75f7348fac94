package bank

import "testing"

func testQuestion(id string, d Difficulty, topic string) Question {
	return Question{
		ID:            id,
		Prompt:        "prompt " + id,
		Options:       map[string]string{"A": "1", "B": "2"},
		CorrectAnswer: "A",
		Difficulty:    d,
		Topic:         topic,
		Subject:       "test_subject",
	}
}

func TestIndexByDifficultyAndTopic(t *testing.T) {
	b := &Bank{
		Subject: "test_subject",
		Kind:    KindFlat,
		Questions: []Question{
			testQuestion("Q1", DifficultyEasy, "Algebra"),
			testQuestion("Q2", DifficultyEasy, "Geometry"),
			testQuestion("Q3", DifficultyMedium, "Algebra"),
			testQuestion("Q4", DifficultyHard, "Algebra"),
		},
	}

	idx := b.Index()

	if got := len(idx.ByDifficulty[DifficultyEasy]); got != 2 {
		t.Errorf("easy count = %d, want 2", got)
	}
	if got := len(idx.ByTopic["Algebra"]); got != 3 {
		t.Errorf("Algebra count = %d, want 3", got)
	}
	if got := len(idx.ByTopicDifficulty["Algebra"][DifficultyHard]); got != 1 {
		t.Errorf("Algebra/Hard count = %d, want 1", got)
	}
}

func TestStatsFlat(t *testing.T) {
	b := &Bank{
		Subject: "test_subject",
		Kind:    KindFlat,
		Questions: []Question{
			testQuestion("Q1", DifficultyEasy, "Algebra"),
			testQuestion("Q2", DifficultyMedium, "Algebra"),
		},
	}

	st := b.Stats()
	if st.Total != 2 {
		t.Errorf("Total = %d, want 2", st.Total)
	}
	if st.ByDifficulty[DifficultyEasy] != 1 {
		t.Errorf("ByDifficulty[Easy] = %d, want 1", st.ByDifficulty[DifficultyEasy])
	}
	if st.ByTopic["Algebra"] != 2 {
		t.Errorf("ByTopic[Algebra] = %d, want 2", st.ByTopic["Algebra"])
	}
}

func TestStatsGrouped(t *testing.T) {
	b := &Bank{
		Subject: "test_subject",
		Kind:    KindGrouped,
		Groups: []Group{
			{ID: "S1", Questions: []Question{
				testQuestion("S1Q1", DifficultyEasy, "DI"),
				testQuestion("S1Q2", DifficultyMedium, "DI"),
				testQuestion("S1Q3", DifficultyMedium, "DI"),
			}},
			{ID: "S2", Questions: []Question{
				testQuestion("S2Q1", DifficultyHard, "DI"),
				testQuestion("S2Q2", DifficultyHard, "DI"),
			}},
		},
	}

	st := b.Stats()
	if st.GroupCount != 2 {
		t.Errorf("GroupCount = %d, want 2", st.GroupCount)
	}
	if st.Total != 5 {
		t.Errorf("Total = %d, want 5", st.Total)
	}
	if len(st.GroupSizes) != 2 || st.GroupSizes[0] != 2 || st.GroupSizes[1] != 3 {
		t.Errorf("GroupSizes = %v, want [2 3]", st.GroupSizes)
	}
}

func TestGroupFootprint(t *testing.T) {
	g := Group{ID: "S1", Questions: []Question{
		testQuestion("Q1", DifficultyEasy, "DI"),
		testQuestion("Q2", DifficultyMedium, "DI"),
		testQuestion("Q3", DifficultyMedium, "DI"),
		testQuestion("Q4", DifficultyHard, "DI"),
	}}

	fp := g.Footprint()
	if fp[DifficultyEasy] != 1 || fp[DifficultyMedium] != 2 || fp[DifficultyHard] != 1 {
		t.Errorf("Footprint() = %v, want Easy:1 Medium:2 Hard:1", fp)
	}
}
