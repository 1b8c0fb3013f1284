package results

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/spexplore/internal/constants"
)

// Summary aggregates one statistic over every trial of a run group.
type Summary struct {
	Experiment string         `json:"experiment"`
	Mode       constants.Mode `json:"mode"`
	Group      string         `json:"group"`
	Name       string         `json:"name"`
	Mean       float64        `json:"mean"`
	StdDev     float64        `json:"stddev"`
	Count      int            `json:"count"`
}

type summaryKey struct {
	experiment, mode, group, name string
}

// Summaries returns the mean, sample standard deviation and count of every
// statistic per experiment, mode and group. An empty experiment summarizes
// everything.
func (s *Store) Summaries(ctx context.Context, experiment string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT experiment, mode, grp, name, value
		FROM stats
		WHERE ? = '' OR experiment = ?
		ORDER BY experiment, mode, grp, name`, experiment, experiment)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var keys []summaryKey
	values := make(map[summaryKey][]float64)
	for rows.Next() {
		var k summaryKey
		var v float64
		if err := rows.Scan(&k.experiment, &k.mode, &k.group, &k.name, &v); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		xs := values[k]
		sum := Summary{
			Experiment: k.experiment,
			Mode:       constants.Mode(k.mode),
			Group:      k.group,
			Name:       k.name,
			Count:      len(xs),
		}
		if len(xs) > 1 {
			sum.Mean, sum.StdDev = stat.MeanStdDev(xs, nil)
		} else {
			sum.Mean = xs[0]
		}
		out = append(out, sum)
	}
	return out, nil
}
