package sweep

import (
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/spexplore/internal/errs"
	"gopkg.in/yaml.v3"
)

// Experiment is one sweep definition. TimeLimit holds the per-job wall time
// for global inhibition at index 0 and local inhibition at index 1.
type Experiment struct {
	Name        string
	TimeLimit   [2]string
	MemoryLimit int
	Parameters  []Parameter
}

// TimeLimitFor returns the wall time limit for an inhibition mode.
func (e Experiment) TimeLimitFor(globalInhibition bool) string {
	if globalInhibition {
		return e.TimeLimit[0]
	}
	return e.TimeLimit[1]
}

// Validate checks the fields that job submission depends on.
func (e Experiment) Validate() error {
	if e.Name == "" {
		return errors.New("experiment name is required")
	}
	if e.TimeLimit[0] == "" || e.TimeLimit[1] == "" {
		return fmt.Errorf("experiment %q: both time limits are required", e.Name)
	}
	if e.MemoryLimit <= 0 {
		return fmt.Errorf("experiment %q: memory limit must be positive, got %d", e.Name, e.MemoryLimit)
	}
	for _, p := range e.Parameters {
		if p.Name == "" {
			return fmt.Errorf("experiment %q: parameter name is required", e.Name)
		}
	}
	return nil
}

type catalogFile struct {
	Experiments []catalogExperiment `yaml:"experiments"`
}

type catalogExperiment struct {
	Name        string             `yaml:"name"`
	TimeLimit   []string           `yaml:"time_limit"`
	MemoryLimit int                `yaml:"memory_limit"`
	Parameters  []catalogParameter `yaml:"parameters"`
}

type catalogParameter struct {
	Name   string `yaml:"name"`
	Values any    `yaml:"values"`
}

// LoadCatalog reads experiment definitions from a YAML file.
func LoadCatalog(path string) ([]Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes experiment definitions from YAML.
func ParseCatalog(data []byte) ([]Experiment, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	experiments := make([]Experiment, 0, len(file.Experiments))
	for _, ce := range file.Experiments {
		if len(ce.TimeLimit) != 2 {
			return nil, fmt.Errorf("experiment %q: time_limit needs 2 entries (global, local), got %d", ce.Name, len(ce.TimeLimit))
		}
		exp := Experiment{
			Name:        ce.Name,
			TimeLimit:   [2]string{ce.TimeLimit[0], ce.TimeLimit[1]},
			MemoryLimit: ce.MemoryLimit,
		}
		for _, cp := range ce.Parameters {
			p := Parameter{Name: cp.Name}
			switch v := cp.Values.(type) {
			case nil:
			case []any:
				p.Values = v
			default:
				return nil, fmt.Errorf("experiment %q: %w", ce.Name, &errs.InvalidSequenceError{Value: v, Method: "values"})
			}
			exp.Parameters = append(exp.Parameters, p)
		}
		if err := exp.Validate(); err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return experiments, nil
}
