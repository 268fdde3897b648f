// Package seed loads demo and test thoughts into the database.
package seed

import (
	"errors"
	"fmt"
	"os"

	"happythoughts/internal/validation"

	"gopkg.in/yaml.v3"
)

// ThoughtFixture is one thought entry of a fixture file.
type ThoughtFixture struct {
	Message string `yaml:"message"`
	Hearts  int    `yaml:"hearts"`
}

// Fixtures is the top-level layout of a fixture file.
type Fixtures struct {
	Thoughts []ThoughtFixture `yaml:"thoughts"`
}

// LoadFixtures reads and validates a yaml fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes fixture yaml. Messages are normalized the same way the API does.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	for i := range f.Thoughts {
		msg, err := validation.NormalizeMessage(f.Thoughts[i].Message)
		if err != nil {
			return nil, fmt.Errorf("thought %d: %w", i, err)
		}
		if f.Thoughts[i].Hearts < 0 {
			return nil, fmt.Errorf("thought %d: %w", i, validation.ErrHeartsNegative)
		}
		f.Thoughts[i].Message = msg
	}
	if len(f.Thoughts) == 0 {
		return nil, errors.New("fixtures contain no thoughts")
	}
	return &f, nil
}
