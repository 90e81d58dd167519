// Package examples manages the curated golden question→SQL pairs used
// for few-shot prompt grounding.
package examples

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nlquery/analyst/internal/errors"
)

// Difficulty is a coarse label for how involved an example's SQL is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Example is one hand-curated, known-correct question→SQL pair.
type Example struct {
	Question   string     `yaml:"question"`
	SQL        string     `yaml:"sql"`
	Difficulty Difficulty `yaml:"difficulty,omitempty"`
}

// Store reads golden examples from a schema-keyed YAML file. The file is
// curated by hand; this store never writes it.
type Store struct {
	path string
}

type examplesFile struct {
	Schemas map[string][]Example `yaml:"schemas"`
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns the examples for a schema. A missing file means no
// examples, not an error; examples without an explicit difficulty get
// one inferred from their SQL.
func (s *Store) List(schema string) ([]Example, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to read examples file %s", s.path)
	}

	var file examplesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to parse examples file %s", s.path)
	}

	examples := file.Schemas[schema]
	for i := range examples {
		if examples[i].Difficulty == "" {
			examples[i].Difficulty = ClassifyDifficulty(examples[i].SQL)
		}
	}

	return examples, nil
}

// ClassifyDifficulty labels SQL by structural complexity: joins or
// grouping push an example past easy, subqueries and window functions
// make it hard.
func ClassifyDifficulty(sql string) Difficulty {
	lower := strings.ToLower(sql)

	switch {
	case strings.Contains(lower, "over ("), strings.Contains(lower, "over("),
		strings.Count(lower, "select") > 1:
		return DifficultyHard
	case strings.Contains(lower, " join "), strings.Contains(lower, "group by"),
		strings.Contains(lower, "having"):
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

var (
	identifierPattern    = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
	stringLiteralPattern = regexp.MustCompile(`'[^']*'`)
)

// ReferencedColumns collects every identifier token appearing in the
// examples' SQL, lowercased. Column pruning consults this set so that
// columns the curated examples depend on always survive pruning.
func ReferencedColumns(examples []Example) map[string]struct{} {
	tokens := make(map[string]struct{})

	for _, ex := range examples {
		stripped := stringLiteralPattern.ReplaceAllString(ex.SQL, "")
		for _, tok := range identifierPattern.FindAllString(stripped, -1) {
			tokens[strings.ToLower(tok)] = struct{}{}
		}
	}

	return tokens
}
