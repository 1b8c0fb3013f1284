package results

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/nvandessel/spexplore/internal/sweep"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is the results database of one batch directory.
type Store struct {
	db   *sql.DB
	path string
}

// Job is one submitted run.
type Job struct {
	Batch       string         `json:"batch"`
	Experiment  string         `json:"experiment"`
	Mode        constants.Mode `json:"mode"`
	Group       string         `json:"group"`
	Dir         string         `json:"dir"`
	JobName     string         `json:"job_name"`
	JobID       string         `json:"job_id,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Stat is one logged statistic of one trial.
type Stat struct {
	Dir        string
	Experiment string
	Mode       constants.Mode
	Group      string
	Trial      int
	Seed       *int64
	Name       string
	Value      float64
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenDir opens the results database of the batch rooted at baseDir.
func OpenDir(baseDir string) (*Store, error) {
	return Open(filepath.Join(baseDir, constants.ResultsDBFile))
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordJob stores a submitted job. Recording the same batch and directory
// again replaces the earlier row.
func (s *Store) RecordJob(ctx context.Context, j Job) error {
	if j.SubmittedAt.IsZero() {
		j.SubmittedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs (batch, experiment, mode, grp, dir, job_name, job_id, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Batch, j.Experiment, string(j.Mode), j.Group, j.Dir, j.JobName, j.JobID,
		j.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", j.JobName, err)
	}
	return nil
}

// Jobs lists recorded jobs in submission order. An empty experiment lists
// every job.
func (s *Store) Jobs(ctx context.Context, experiment string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch, experiment, mode, grp, dir, job_name, COALESCE(job_id, ''), submitted_at
		FROM jobs
		WHERE ? = '' OR experiment = ?
		ORDER BY submitted_at, dir`, experiment, experiment)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var mode, submitted string
		if err := rows.Scan(&j.Batch, &j.Experiment, &mode, &j.Group, &j.Dir, &j.JobName, &j.JobID, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.Mode = constants.Mode(mode)
		if j.SubmittedAt, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
			return nil, fmt.Errorf("job %s has bad submitted_at %q: %w", j.JobName, submitted, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// statLine is one line of a run's stats file.
type statLine struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Seed  *int64  `json:"seed"`
	Trial int     `json:"trial"`
}

// ImportStats loads the stats file of the run in dir, replacing anything
// imported for dir before. Rows are keyed on the absolute run directory.
// When a statistic was logged more than once for the same trial and seed,
// the last line wins. It returns the number of statistics stored.
func (s *Store) ImportStats(ctx context.Context, dir string) (int, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve run dir: %w", err)
	}
	dir = abs

	cfg, err := sweep.ReadConfig(filepath.Join(dir, constants.ConfigFile))
	if err != nil {
		return 0, fmt.Errorf("failed to read run config: %w", err)
	}
	info, err := sweep.ParseLogDir(cfg.LogDir())
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", dir, err)
	}
	lines, err := readStats(filepath.Join(dir, constants.StatsFile))
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stats WHERE dir = ?`, dir); err != nil {
		return 0, fmt.Errorf("failed to clear stats for %s: %w", dir, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stats (dir, experiment, mode, grp, trial, seed, name, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		var seed sql.NullInt64
		if l.Seed != nil {
			seed = sql.NullInt64{Int64: *l.Seed, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, dir, info.Experiment, string(info.Mode), info.Group, info.Trial, seed, l.Name, l.Value); err != nil {
			return 0, fmt.Errorf("failed to insert stat %q: %w", l.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stats: %w", err)
	}
	return len(lines), nil
}

func readStats(path string) ([]statLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats: %w", err)
	}
	defer f.Close()

	var lines []statLine
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var l statLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		if l.Name == "" {
			return nil, fmt.Errorf("%s:%d: stat has no name", path, n)
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return dedupeStats(lines), nil
}

type statKey struct {
	trial  int
	seed   int64
	seeded bool
	name   string
}

// dedupeStats keeps the last line per (trial, seed, name), in first-seen
// order. A requeued job logs its trials again.
func dedupeStats(lines []statLine) []statLine {
	index := make(map[statKey]int, len(lines))
	out := lines[:0:0]
	for _, l := range lines {
		k := statKey{trial: l.Trial, name: l.Name}
		if l.Seed != nil {
			k.seed, k.seeded = *l.Seed, true
		}
		if i, ok := index[k]; ok {
			out[i] = l
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out
}

// CollectResult counts what Collect imported.
type CollectResult struct {
	Runs  int `json:"runs"`
	Stats int `json:"stats"`
}

// Collect imports every run under baseDir that has logged statistics.
func (s *Store) Collect(ctx context.Context, baseDir string) (CollectResult, error) {
	var res CollectResult
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || d.Name() != constants.StatsFile {
			return nil
		}
		n, err := s.ImportStats(ctx, filepath.Dir(path))
		if err != nil {
			return err
		}
		res.Runs++
		res.Stats += n
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("collecting %s: %w", baseDir, err)
	}
	return res, nil
}
