package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrMixedBank is returned when a file carries both flat questions
	// and grouped sets.
	ErrMixedBank = errors.New("bank mixes flat questions and grouped sets")

	// ErrEmptyBank is returned when a file carries neither.
	ErrEmptyBank = errors.New("bank has no questions or sets")
)

// Load reads and validates one bank file. The whole load fails on the
// first structural problem; no partially loaded bank is returned.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank %s: %w", path, err)
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load bank %s: %w", path, err)
	}
	return b, nil
}

// Decode parses and validates a bank document from raw JSON.
func Decode(data []byte) (*Bank, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bank document must be a JSON object")
	}

	_, hasFlat := doc["questions"]
	setKey := findSetKey(doc)

	switch {
	case hasFlat && setKey != "":
		return nil, ErrMixedBank
	case hasFlat:
		return decodeFlat(data, parsed)
	case setKey != "":
		return decodeGrouped(data, parsed, setKey)
	default:
		return nil, ErrEmptyBank
	}
}

// findSetKey returns the "<group_kind>_sets" key of a grouped document,
// or "" when none is present.
func findSetKey(doc map[string]any) string {
	for k := range doc {
		if strings.HasSuffix(k, "_sets") {
			return k
		}
	}
	return ""
}

func decodeFlat(data []byte, parsed any) (*Bank, error) {
	if err := validateDocument("bank-flat", flatBankSchema, parsed); err != nil {
		return nil, err
	}

	var doc struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	b := &Bank{Kind: KindFlat, Questions: doc.Questions}
	seen := make(map[string]bool, len(doc.Questions))
	for i := range doc.Questions {
		q := &doc.Questions[i]
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question_id %q", q.ID)
		}
		seen[q.ID] = true
		if b.Subject == "" {
			b.Subject = q.Subject
		} else if q.Subject != b.Subject {
			return nil, fmt.Errorf("question %s: subject %q differs from bank subject %q",
				q.ID, q.Subject, b.Subject)
		}
	}
	return b, nil
}

func decodeGrouped(data []byte, parsed any, setKey string) (*Bank, error) {
	if err := validateDocument("bank-grouped", groupedBankSchema, parsed); err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode sets: %w", err)
	}

	var groups []Group
	if err := json.Unmarshal(doc[setKey], &groups); err != nil {
		return nil, fmt.Errorf("decode %s: %w", setKey, err)
	}

	b := &Bank{Kind: KindGrouped, Groups: groups}
	seen := make(map[string]bool, len(groups))
	for i := range b.Groups {
		g := &b.Groups[i]
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("duplicate set_id %q", g.ID)
		}
		seen[g.ID] = true
		// Keep sub-question order stable across loads.
		sort.SliceStable(g.Questions, func(a, c int) bool {
			return g.Questions[a].ID < g.Questions[c].ID
		})
		for j := range g.Questions {
			if b.Subject == "" {
				b.Subject = g.Questions[j].Subject
			} else if g.Questions[j].Subject != b.Subject {
				return nil, fmt.Errorf("question %s: subject %q differs from bank subject %q",
					g.Questions[j].ID, g.Questions[j].Subject, b.Subject)
			}
		}
	}
	return b, nil
}

// BankSet holds all loaded banks keyed by subject. Loading two banks of
// the same kind for one subject merges them; a flat/grouped collision
// for one subject is a structural error.
type BankSet struct {
	banks map[string]*Bank
}

// NewBankSet returns an empty bank set.
func NewBankSet() *BankSet {
	return &BankSet{banks: make(map[string]*Bank)}
}

// Add merges a bank into the set under its subject. Question and set
// identifiers must stay unique across every file merged for one
// subject; a collision is a structural error, same as within one file.
func (s *BankSet) Add(b *Bank) error {
	existing, ok := s.banks[b.Subject]
	if !ok {
		s.banks[b.Subject] = b
		return nil
	}
	if existing.Kind != b.Kind {
		return fmt.Errorf("subject %q: %w", b.Subject, ErrMixedBank)
	}

	seen := make(map[string]bool, existing.QuestionCount())
	for i := range existing.Questions {
		seen[existing.Questions[i].ID] = true
	}
	for i := range existing.Groups {
		seen[existing.Groups[i].ID] = true
		for j := range existing.Groups[i].Questions {
			seen[existing.Groups[i].Questions[j].ID] = true
		}
	}
	for i := range b.Questions {
		if seen[b.Questions[i].ID] {
			return fmt.Errorf("subject %q: duplicate question_id %q across bank files",
				b.Subject, b.Questions[i].ID)
		}
	}
	for i := range b.Groups {
		if seen[b.Groups[i].ID] {
			return fmt.Errorf("subject %q: duplicate set_id %q across bank files",
				b.Subject, b.Groups[i].ID)
		}
		for j := range b.Groups[i].Questions {
			if seen[b.Groups[i].Questions[j].ID] {
				return fmt.Errorf("subject %q: duplicate question_id %q across bank files",
					b.Subject, b.Groups[i].Questions[j].ID)
			}
		}
	}

	existing.Questions = append(existing.Questions, b.Questions...)
	existing.Groups = append(existing.Groups, b.Groups...)
	existing.index = nil
	return nil
}

// Get returns the bank for a subject.
func (s *BankSet) Get(subject string) (*Bank, bool) {
	b, ok := s.banks[subject]
	return b, ok
}

// Subjects returns the loaded subject names, sorted.
func (s *BankSet) Subjects() []string {
	subjects := make([]string, 0, len(s.banks))
	for subject := range s.banks {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// LoadFiles loads a list of bank files into a BankSet. Any structural
// error aborts the whole load.
func LoadFiles(paths []string) (*BankSet, error) {
	set := NewBankSet()
	for _, path := range paths {
		b, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := set.Add(b); err != nil {
			return nil, fmt.Errorf("add bank %s: %w", path, err)
		}
	}
	return set, nil
}

// LoadDir loads every *.json file in dir into a BankSet.
func LoadDir(dir string) (*BankSet, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan bank dir %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no bank files in %s", dir)
	}
	sort.Strings(paths)
	return LoadFiles(paths)
}
