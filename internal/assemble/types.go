package assemble

import (
	"encoding/json"
	"time"

	"github.com/abhisek/mockforge/internal/bank"
)

// OutputQuestion is a selected question as it appears in the output
// document: the bank question plus its position and, for group-sourced
// questions, the set it belongs to.
type OutputQuestion struct {
	bank.Question
	Number int    `json:"question_number"`
	SetID  string `json:"set_id,omitempty"`
}

// AssembledSection is one finished section of the output document.
type AssembledSection struct {
	SectionName    string  `json:"section_name"`
	Subject        string  `json:"subject"`
	TotalQuestions int     `json:"total_questions"`
	MarksPerQ      float64 `json:"marks_per_question"`
	NegativeMarks  float64 `json:"negative_marks"`

	Questions []OutputQuestion `json:"questions"`

	// Contexts maps set_id to the shared payload of each group whose
	// questions appear in this section.
	Contexts map[string]json.RawMessage `json:"contexts,omitempty"`

	DifficultyDistribution map[bank.Difficulty]int `json:"difficulty_distribution"`
	TopicDistribution      map[string]int          `json:"topic_distribution,omitempty"`
}

// Metadata is the generation block of the output document.
type Metadata struct {
	InstanceID  string    `json:"instance_id"`
	BlueprintID string    `json:"blueprint_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        uint64    `json:"seed"`
	SeriesIndex int       `json:"series_index,omitempty"`
}

// AssembledTest is the finished, gradable test document. It is built
// once per blueprint and never mutated afterwards.
type AssembledTest struct {
	TestID          string             `json:"test_id"`
	TestName        string             `json:"test_name"`
	DurationMinutes int                `json:"duration_minutes"`
	NegativeMarking float64            `json:"negative_marking"`
	TotalQuestions  int                `json:"total_questions"`
	TotalMarks      float64            `json:"total_marks"`
	Sections        []AssembledSection `json:"sections"`

	DifficultyDistribution map[bank.Difficulty]int `json:"difficulty_distribution"`

	Metadata Metadata `json:"generation_metadata"`
}

// QuestionIDs returns every question identifier in document order.
func (t *AssembledTest) QuestionIDs() []string {
	var ids []string
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			ids = append(ids, t.Sections[i].Questions[j].ID)
		}
	}
	return ids
}
