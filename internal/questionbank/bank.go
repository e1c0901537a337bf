// Package questionbank loads question banks from YAML files.
package questionbank

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/toximeter/internal/assessment"
)

//go:embed default.yaml
var defaultBank []byte

// File is the on-disk layout of a bank.
type File struct {
	Version   int                   `yaml:"version"`
	Questions []assessment.Question `yaml:"questions"`
}

// Default returns the built-in twelve-question bank.
func Default() ([]assessment.Question, error) {
	qs, err := Parse(defaultBank)
	if err != nil {
		return nil, fmt.Errorf("questionbank.Default: %w", err)
	}
	return qs, nil
}

// Load reads a bank from path. An empty path yields the default bank.
func Load(path string) ([]assessment.Question, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank.Load: %w", err)
	}
	qs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questionbank.Load %s: %w", path, err)
	}
	return qs, nil
}

// Parse decodes and validates a bank. Questions come back active, and
// missing orders are filled from file position.
func Parse(data []byte) ([]assessment.Question, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if f.Version > 1 {
		return nil, fmt.Errorf("unsupported bank version %d", f.Version)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("bank has no questions")
	}

	seen := make(map[string]bool, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		if q.Order == 0 {
			q.Order = i + 1
		}
		q.Active = true
		if q.ID != "" {
			if seen[q.ID] {
				return nil, fmt.Errorf("duplicate question id %q", q.ID)
			}
			seen[q.ID] = true
		}
		if err := assessment.ValidateQuestion(*q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return f.Questions, nil
}
