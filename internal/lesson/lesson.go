// Package lesson defines seed scenarios: YAML documents describing the
// workspace a teaching exercise starts from. A scenario seeds files and then
// drives the real engine through terminal commands, so every mock state is
// reproduced by the same code paths students use.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazuruo/edugit/internal/shell"
	"github.com/chazuruo/edugit/internal/vfs"
)

// SchemaVersion is the current scenario schema version
const SchemaVersion = 1

// Scenario is a runnable seed definition
type Scenario struct {
	SchemaVersion int    `yaml:"schema_version"`
	ID            string `yaml:"id"`       // Required, unique
	Title         string `yaml:"title"`    // Required
	Description   string `yaml:"description,omitempty"`
	Steps         []Step `yaml:"steps"`
}

// Step is a single seeding step: files land first, then commands run
type Step struct {
	Name    string            `yaml:"name,omitempty"`    // Step name/identifier
	Files   map[string]string `yaml:"files,omitempty"`   // Path -> content to write
	Delete  []string          `yaml:"delete,omitempty"`  // Paths to remove
	Run     []string          `yaml:"run,omitempty"`     // Terminal commands to execute
}

// UnmarshalScenario parses and validates a YAML scenario document.
func UnmarshalScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for structural problems.
func (sc *Scenario) Validate() error {
	if sc.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", sc.SchemaVersion)
	}
	if sc.ID == "" {
		return errors.New("scenario id is required")
	}
	if sc.Title == "" {
		return errors.New("scenario title is required")
	}
	if len(sc.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	for i, step := range sc.Steps {
		if len(step.Files) == 0 && len(step.Run) == 0 && len(step.Delete) == 0 {
			return fmt.Errorf("step %d (%s) does nothing", i, step.Name)
		}
	}
	return nil
}

// Apply seeds a session's FileStore with the scenario: every step writes its
// files, applies its deletions, and runs its commands through the terminal.
// A command whose output contains a fatal/error line aborts the seed.
func Apply(ctx context.Context, s *shell.Session, sc *Scenario) error {
	for i, step := range sc.Steps {
		for path, content := range step.Files {
			if err := s.FS().WriteFile(vfs.Clean(path), []byte(content)); err != nil {
				return fmt.Errorf("step %d (%s): write %s: %w", i, step.Name, path, err)
			}
		}
		for _, path := range step.Delete {
			if err := vfs.RemoveAll(s.FS(), vfs.Clean(path)); err != nil {
				return fmt.Errorf("step %d (%s): delete %s: %w", i, step.Name, path, err)
			}
		}
		for _, line := range step.Run {
			res := s.Run(ctx, line)
			if res.Failed() {
				return fmt.Errorf("step %d (%s): %q failed: %s",
					i, step.Name, line, strings.Join(res.Lines, "; "))
			}
		}
	}
	return nil
}
