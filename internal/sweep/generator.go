package sweep

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/spexplore/internal/seed"
)

// DefaultGroup names the run group of a sweep with no swept parameters.
const DefaultGroup = "default"

// Parameter is one entry of an experiment's parameter list. A nil Values
// slice means the parameter is derived by the model instead of swept.
type Parameter struct {
	Name   string
	Values []any
}

// Swept reports whether the parameter contributes a sweep axis.
func (p Parameter) Swept() bool {
	return p.Values != nil
}

// Generated is one concrete configuration produced by a Generator.
type Generated struct {
	Config Config
	Group  string
	Trial  int
}

// Generator expands a base configuration into the cross product of the swept
// parameter values and the trial axis.
type Generator struct {
	base       Config
	swept      []Parameter
	ntrials    int
	trialSeeds []int64
}

// Option configures a Generator.
type Option func(*Generator) error

// WithTrialSeeds gives every trial its own seed derived from s. Trials with
// the same index share a seed across parameter values.
func WithTrialSeeds(s int64) Option {
	return func(g *Generator) error {
		seeds, err := seed.GenerateSeeds(g.ntrials, s)
		if err != nil {
			return fmt.Errorf("deriving trial seeds: %w", err)
		}
		g.trialSeeds = seeds
		return nil
	}
}

// NewGenerator applies params to a copy of base and prepares the expansion.
func NewGenerator(base Config, params []Parameter, ntrials int, opts ...Option) (*Generator, error) {
	if ntrials < 1 {
		return nil, fmt.Errorf("ntrials must be at least 1, got %d", ntrials)
	}
	if base.LogDir() == "" {
		return nil, errors.New("base config has no log_dir")
	}

	g := &Generator{base: base.Clone(), ntrials: ntrials}
	for _, p := range params {
		if p.Name == "" {
			return nil, errors.New("parameter name is required")
		}
		if !p.Swept() {
			g.base[p.Name] = nil
			g.swept = removeParam(g.swept, p.Name)
			continue
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("parameter %q has an empty value list", p.Name)
		}
		values := make([]any, len(p.Values))
		for i, v := range p.Values {
			n, err := Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
			}
			values[i] = n
		}
		// Later entries with the same name replace earlier ones.
		g.swept = append(removeParam(g.swept, p.Name), Parameter{Name: p.Name, Values: values})
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func removeParam(ps []Parameter, name string) []Parameter {
	out := ps[:0]
	for _, p := range ps {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of configurations Configs yields.
func (g *Generator) Len() int {
	n := g.ntrials
	for _, p := range g.swept {
		n *= len(p.Values)
	}
	return n
}

// Configs lazily yields every configuration. Parameter values vary in
// declaration order, the trial index fastest.
func (g *Generator) Configs() iter.Seq[Generated] {
	return func(yield func(Generated) bool) {
		idx := make([]int, len(g.swept))
		for {
			group := g.groupName(idx)
			for trial := 0; trial < g.ntrials; trial++ {
				if !yield(g.build(idx, group, trial)) {
					return
				}
			}
			if !g.advance(idx) {
				return
			}
		}
	}
}

func (g *Generator) build(idx []int, group string, trial int) Generated {
	cfg := g.base.Clone()
	for i, p := range g.swept {
		cfg[p.Name] = p.Values[idx[i]]
	}
	if g.trialSeeds != nil {
		cfg[KeySeed] = g.trialSeeds[trial]
	}
	cfg[KeyLogDir] = filepath.Join(g.base.LogDir(), group+"-"+strconv.Itoa(trial))
	return Generated{Config: cfg, Group: group, Trial: trial}
}

// advance steps the odometer; the last parameter varies fastest.
func (g *Generator) advance(idx []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(g.swept[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

func (g *Generator) groupName(idx []int) string {
	if len(g.swept) == 0 {
		return DefaultGroup
	}
	parts := make([]string, len(g.swept))
	for i, p := range g.swept {
		parts[i] = p.Name + "_" + formatValue(p.Values[idx[i]])
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		s = "null"
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	return strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(s)
}

// SplitTrialSuffix splits a log directory base name of the form
// "<group>-<trial>" at its last hyphen.
func SplitTrialSuffix(name string) (group string, trial int, err error) {
	i := strings.LastIndex(name, "-")
	if i <= 0 {
		return "", 0, fmt.Errorf("log dir name %q has no trial suffix", name)
	}
	trial, err = strconv.Atoi(name[i+1:])
	if err != nil || trial < 0 {
		return "", 0, fmt.Errorf("log dir name %q has an invalid trial suffix", name)
	}
	return name[:i], trial, nil
}
