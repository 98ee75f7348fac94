package bank

import (
	"encoding/json"
	"fmt"
)

// Difficulty is the difficulty level of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// AllDifficulties returns the difficulty levels in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty converts a string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// OptionLabels is the fixed alphabet of answer option labels.
// A bank question uses a subset of these; labels outside it are rejected
// at load time.
var OptionLabels = []string{"A", "B", "C", "D", "E"}

// Question is a single multiple-choice question as it appears in a bank file.
type Question struct {
	// ID is unique within a bank file.
	ID string `json:"question_id"`

	// Prompt is the question text shown to the candidate.
	Prompt string `json:"question"`

	// Options maps option label (A-E) to option text. Not all labels
	// need be present, but at least one must be.
	Options map[string]string `json:"options"`

	// CorrectAnswer is the label of the correct option. It must be a
	// key of Options.
	CorrectAnswer string `json:"correct_answer"`

	// Explanation is the worked solution shown after scoring.
	Explanation string `json:"explanation"`

	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	Subject    string     `json:"subject"`
}

// Validate checks the per-question invariants. A violation is a
// structural error and fails the whole bank load.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question missing question_id")
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %s: empty prompt", q.ID)
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("question %s: empty options", q.ID)
	}
	for label := range q.Options {
		if !validLabel(label) {
			return fmt.Errorf("question %s: option label %q outside A-E", q.ID, label)
		}
	}
	if _, ok := q.Options[q.CorrectAnswer]; !ok {
		return fmt.Errorf("question %s: correct_answer %q not among options", q.ID, q.CorrectAnswer)
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return fmt.Errorf("question %s: %w", q.ID, err)
	}
	return nil
}

func validLabel(label string) bool {
	for _, l := range OptionLabels {
		if l == label {
			return true
		}
	}
	return false
}

// Group is an atomic cluster of questions sharing one context, such as a
// data-interpretation set built around a single chart. A group is selected
// or skipped as a whole; its questions keep their internal order.
type Group struct {
	// ID is the set identifier, unique within a bank file.
	ID string `json:"set_id"`

	// Context is the shared payload (chart reference, table data or
	// caselet text). The engine carries it through verbatim.
	Context json.RawMessage `json:"context"`

	// Questions are the scored sub-questions of the set, in display order.
	Questions []Question `json:"questions"`
}

// Size returns the number of sub-questions in the group.
func (g *Group) Size() int { return len(g.Questions) }

// Difficulty returns the group's difficulty, taken from its first
// sub-question. Empty groups report Medium.
func (g *Group) Difficulty() Difficulty {
	if len(g.Questions) == 0 {
		return DifficultyMedium
	}
	return g.Questions[0].Difficulty
}

// Footprint counts the group's sub-questions per difficulty level.
func (g *Group) Footprint() map[Difficulty]int {
	fp := make(map[Difficulty]int, 3)
	for i := range g.Questions {
		fp[g.Questions[i].Difficulty]++
	}
	return fp
}

// Validate checks the group and all of its sub-questions.
func (g *Group) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group missing set_id")
	}
	if len(g.Questions) == 0 {
		return fmt.Errorf("group %s: no questions", g.ID)
	}
	for i := range g.Questions {
		if err := g.Questions[i].Validate(); err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
	}
	return nil
}

// Kind distinguishes flat banks (pure questions) from grouped banks
// (pure sets). Mixed files are rejected at load time.
type Kind string

const (
	KindFlat    Kind = "flat"
	KindGrouped Kind = "grouped"
)

// Bank is a validated, subject-scoped pool of questions or groups.
// Banks are read-only after loading; selection state lives in the
// selection package, not here.
type Bank struct {
	Subject   string
	Kind      Kind
	Questions []Question // populated when Kind is KindFlat
	Groups    []Group    // populated when Kind is KindGrouped

	index *Index
}

// Index returns the lazily built lookup index for this bank.
func (b *Bank) Index() *Index {
	if b.index == nil {
		b.index = buildIndex(b)
	}
	return b.index
}

// QuestionCount returns the number of scored questions in the bank,
// counting each group sub-question individually.
func (b *Bank) QuestionCount() int {
	if b.Kind == KindGrouped {
		n := 0
		for i := range b.Groups {
			n += b.Groups[i].Size()
		}
		return n
	}
	return len(b.Questions)
}
