// Package preset holds the built-in experiment catalogs.
package preset

import "github.com/nvandessel/spexplore/internal/sweep"

// Per-job limits shared by the first-order experiments. Local inhibition is
// roughly twice as slow as global inhibition.
var (
	firstOrderTime   = [2]string{"00-00:30:00", "00-01:00:00"}
	firstOrderMemory = 512
)

// FirstOrderEffects returns the experiments that vary one parameter at a
// time to study its direct effect on SDR quality.
func FirstOrderEffects() []sweep.Experiment {
	return []sweep.Experiment{
		{
			Name:        "ncolumns",
			TimeLimit:   firstOrderTime,
			MemoryLimit: firstOrderMemory,
			Parameters: []sweep.Parameter{
				{Name: "ncolumns", Values: arange(5, 20, 5)},
			},
		},
		{
			Name:        "nactive",
			TimeLimit:   firstOrderTime,
			MemoryLimit: firstOrderMemory,
			Parameters: []sweep.Parameter{
				{Name: "nactive", Values: arange(1, 4, 1)},
				// Derived from nactive by the model.
				{Name: "pct_active", Values: nil},
			},
		},
	}
}

// arange returns start, start+step, ... below stop.
func arange(start, stop, step int64) []any {
	var out []any
	for v := start; v < stop; v += step {
		out = append(out, v)
	}
	return out
}
