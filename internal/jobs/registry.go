// Package jobs executes registered pipeline scripts (crawlers, enrichers,
// snapshot publishers) as supervised child processes with wall-clock
// timeouts and bounded output capture.
package jobs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobDisabled = errors.New("job disabled")
)

// Spec is the static definition of a registered job. The registry is
// loaded once at startup and read-only afterwards.
type Spec struct {
	Name        string   `yaml:"name" json:"name"`
	ScriptPath  string   `yaml:"script" json:"script"`
	Args        []string `yaml:"args" json:"args"`
	TimeoutMs   int      `yaml:"timeout_ms" json:"timeout_ms"`
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
}

type Registry struct {
	specs map[string]Spec
	order []string
}

type registryFile struct {
	Jobs []Spec `yaml:"jobs"`
}

// LoadRegistry reads and validates the job definitions from a YAML file.
// Misconfiguration fails here, at boot, not at first invocation.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file: %w", err)
	}

	return NewRegistry(file.Jobs)
}

func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("job with empty name")
		}
		if _, exists := r.specs[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate job name: %s", spec.Name)
		}
		if spec.ScriptPath == "" {
			return nil, fmt.Errorf("job %s: empty script path", spec.Name)
		}
		if spec.TimeoutMs <= 0 {
			return nil, fmt.Errorf("job %s: timeout_ms must be positive", spec.Name)
		}

		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)
	}

	return r, nil
}

// Lookup returns the spec for an enabled job. ErrJobNotFound and
// ErrJobDisabled are checked here, before any process is spawned.
func (r *Registry) Lookup(name string) (Spec, error) {
	spec, exists := r.specs[name]
	if !exists {
		return Spec{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !spec.Enabled {
		return Spec{}, fmt.Errorf("%w: %s", ErrJobDisabled, name)
	}
	return spec, nil
}

// List returns all registered specs in file order.
func (r *Registry) List() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}
	return specs
}
