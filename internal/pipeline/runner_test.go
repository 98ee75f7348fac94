package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/abhisek/mockforge/internal/assemble"
	"github.com/abhisek/mockforge/internal/config"
	"github.com/abhisek/mockforge/internal/store"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func bankDoc(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(`{"questions": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		diff := []string{"Easy", "Medium", "Hard"}[i%3]
		fmt.Fprintf(&b, `{"question_id": "GA%03d", "question": "Q%d?",
			"options": {"A": "1", "B": "2"}, "correct_answer": "A",
			"difficulty": %q, "topic": "General", "subject": "general_awareness"}`, i, i, diff)
	}
	b.WriteString(`]}`)
	return b.String()
}

const blueprintDoc = `{
  "test_id": "MOCK_A",
  "test_name": "Mock A",
  "duration_minutes": 30,
  "sections": [
    {"section_name": "GA", "subject": "general_awareness",
     "total_questions": 6, "marks_per_question": 1,
     "difficulty_distribution": {"Easy": 2, "Medium": 2, "Hard": 2}}
  ]
}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.BankDir = filepath.Join(root, "banks")
	cfg.BlueprintDir = filepath.Join(root, "blueprints")
	cfg.OutDir = filepath.Join(root, "out")
	cfg.Seed = 99
	for _, dir := range []string{cfg.BankDir, cfg.BlueprintDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFixture(t, cfg.BankDir, "general_awareness.json", bankDoc(t, 30))
	writeFixture(t, cfg.BlueprintDir, "mock_a.json", blueprintDoc)
	return cfg
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg, nil, zerolog.Nop())

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != assemble.StatusSuccess {
		t.Errorf("Status = %q, want success", report.Status)
	}
	if report.TestsBuilt != 1 {
		t.Errorf("TestsBuilt = %d, want 1", report.TestsBuilt)
	}

	var test assemble.AssembledTest
	data, err := os.ReadFile(filepath.Join(cfg.OutDir, "MOCK_A.json"))
	if err != nil {
		t.Fatalf("read test output: %v", err)
	}
	if err := json.Unmarshal(data, &test); err != nil {
		t.Fatalf("decode test output: %v", err)
	}
	if test.TotalQuestions != 6 {
		t.Errorf("TotalQuestions = %d, want 6", test.TotalQuestions)
	}
	if test.Metadata.Seed != 99 {
		t.Errorf("Seed = %d, want 99", test.Metadata.Seed)
	}

	for _, name := range []string{"MOCK_A_report.json", "run_report.json"} {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunSeries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Series = 3
	r := NewRunner(cfg, nil, zerolog.Nop())

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TestsBuilt != 3 {
		t.Fatalf("TestsBuilt = %d, want 3", report.TestsBuilt)
	}

	seen := make(map[string]bool)
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("MOCK_A_%02d.json", i)
		data, err := os.ReadFile(filepath.Join(cfg.OutDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var test assemble.AssembledTest
		if err := json.Unmarshal(data, &test); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		for _, id := range test.QuestionIDs() {
			if seen[id] {
				t.Errorf("question %s repeated across series", id)
			}
			seen[id] = true
		}
	}
}

func TestRunIsolatesBlueprintFailure(t *testing.T) {
	cfg := testConfig(t)
	writeFixture(t, cfg.BlueprintDir, "broken.json", `{"test_id": "B"}`)
	r := NewRunner(cfg, nil, zerolog.Nop())

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v (blueprint errors must not abort the run)", err)
	}
	if report.Status != assemble.StatusFailed {
		t.Errorf("Status = %q, want failed", report.Status)
	}
	if len(report.Blueprints) != 2 {
		t.Fatalf("got %d blueprint results, want 2", len(report.Blueprints))
	}

	// Sorted discovery: broken.json first, mock_a.json second.
	if report.Blueprints[0].Status != assemble.StatusFailed || report.Blueprints[0].Error == "" {
		t.Errorf("broken blueprint result = %+v", report.Blueprints[0])
	}
	if report.Blueprints[1].Status != assemble.StatusSuccess {
		t.Errorf("good blueprint result = %+v", report.Blueprints[1])
	}
	if report.TestsBuilt != 1 {
		t.Errorf("TestsBuilt = %d, want 1", report.TestsBuilt)
	}
}

func TestRunNoBlueprints(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(filepath.Join(cfg.BlueprintDir, "mock_a.json")); err != nil {
		t.Fatal(err)
	}
	r := NewRunner(cfg, nil, zerolog.Nop())

	if _, err := r.Run(context.Background()); err == nil {
		t.Error("Run() succeeded with no blueprints")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	db, err := store.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	r := NewRunner(cfg, db, zerolog.Nop())
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	runs, err := db.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Seed != 99 || runs[0].TestsBuilt != 1 {
		t.Errorf("run record = %+v", runs[0])
	}

	tests, err := db.RunTests(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tests) != 1 || tests[0].TestID != "MOCK_A" {
		t.Errorf("test records = %+v", tests)
	}
}
