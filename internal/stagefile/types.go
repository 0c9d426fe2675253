// Package stagefile loads a YAML document of stage definitions and
// validates it before handing them to the engine. It deliberately has
// no notion of environments, includes, or templating — full pipeline
// configuration management is out of scope (spec.md Non-goals); this
// exists so the engine and tests have a way to construct
// []stage.Definition from a file on disk.
package stagefile

// Document is the on-disk YAML shape: a named pipeline and its stages.
type Document struct {
	Version  string      `yaml:"version" validate:"required,semver"`
	Pipeline string      `yaml:"pipeline" validate:"required,min=1,max=100"`
	Stages   []StageYAML `yaml:"stages" validate:"required,min=1,dive"`
}

// StageYAML mirrors stage.Definition's fields in their YAML wire shape.
// Durations are given as Go duration strings ("30s", "2m") rather than
// stage.Definition's time.Duration so the document stays plain text.
type StageYAML struct {
	ID           string            `yaml:"id" validate:"required,stage_id"`
	Name         string            `yaml:"name,omitempty" validate:"omitempty,max=200"`
	Description  string            `yaml:"description,omitempty" validate:"omitempty,max=1000"`
	Executable   string            `yaml:"executable" validate:"required"`
	Args         []string          `yaml:"args,omitempty"`
	DependsOn    []string          `yaml:"depends_on,omitempty" validate:"omitempty,dive,stage_id"`
	Env          map[string]string `yaml:"env,omitempty"`
	WorkDir      string            `yaml:"work_dir,omitempty"`
	Priority     string            `yaml:"priority,omitempty" validate:"omitempty,oneof=low normal high critical"`
	Timeout      string            `yaml:"timeout" validate:"required"`
	MaxRetries   int               `yaml:"max_retries,omitempty" validate:"omitempty,min=0"`
	RetryDelay   string            `yaml:"retry_delay,omitempty"`
	AllowFailure bool              `yaml:"allow_failure,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty"`
}
