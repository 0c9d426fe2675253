package stagefile

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/ports"
)

// Loader reads a YAML stage-definition file from disk and converts it
// into validated stage.Definitions. It implements ports.ConfigLoader.
type Loader struct{}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader constructs a Loader.
func NewLoader() *Loader { return &Loader{} }

// Load implements ports.ConfigLoader.
func (l *Loader) Load(_ context.Context, path string) ([]stage.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domainerrors.NewConfiguration(fmt.Sprintf("failed to read stagefile %q", path), err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domainerrors.NewConfiguration(fmt.Sprintf("failed to parse stagefile %q", path), err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, err
	}

	defs := make([]stage.Definition, 0, len(doc.Stages))
	for i, s := range doc.Stages {
		d, err := toDefinition(s)
		if err != nil {
			return nil, domainerrors.NewConfiguration(
				fmt.Sprintf("stages[%d] (%s): %v", i, s.ID, err), err,
			)
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func toDefinition(s StageYAML) (stage.Definition, error) {
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return stage.Definition{}, fmt.Errorf("invalid timeout %q: %w", s.Timeout, err)
	}

	var retryDelay time.Duration
	if s.RetryDelay != "" {
		retryDelay, err = time.ParseDuration(s.RetryDelay)
		if err != nil {
			return stage.Definition{}, fmt.Errorf("invalid retry_delay %q: %w", s.RetryDelay, err)
		}
	}

	priority := stage.Priority(s.Priority)
	if priority == "" {
		priority = stage.PriorityNormal
	}

	return stage.Definition{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		Executable:   s.Executable,
		Args:         append([]string(nil), s.Args...),
		DependsOn:    append([]string(nil), s.DependsOn...),
		Env:          s.Env,
		WorkDir:      s.WorkDir,
		Priority:     priority,
		Timeout:      timeout,
		MaxRetries:   s.MaxRetries,
		RetryDelay:   retryDelay,
		AllowFailure: s.AllowFailure,
		Metadata:     s.Metadata,
	}, nil
}
