// Package constants provides named constants shared by the sweep driver,
// the single-run executor and the results tooling.
package constants

// File names inside a run directory. These form the contract between the
// driver that writes a run and the job that later reads it.
const (
	// ConfigFile holds the JSON configuration for the run.
	ConfigFile = "config.json"

	// DatasetFile holds the Arrow dataset bundle shared by the batch.
	DatasetFile = "dataset.arrow"

	// RunnerFile is the generated job script.
	RunnerFile = "runner.sh"

	// StdoutFile and StderrFile receive the job's output streams.
	StdoutFile = "stdio.txt"
	StderrFile = "stderr.txt"

	// StatsFile receives one JSON line per logged statistic.
	StatsFile = "stats.jsonl"
)

// Files at the root of a batch base directory.
const (
	// JobsLogFile receives one JSON line per submitted job.
	JobsLogFile = "jobs.jsonl"

	// ResultsDBFile is the SQLite results store.
	ResultsDBFile = "results.db"

	// AuditLogFile receives one JSON line per MCP tool call.
	AuditLogFile = "mcp_audit.jsonl"
)

// Defaults for the synthetic dataset.
const (
	DefaultNSamples  = 500
	DefaultNBits     = 100
	DefaultPctActive = 0.4
	DefaultPctNoise  = 0.15
	DefaultSeed      = 123456789
)

// Defaults for batch submission.
const (
	// DefaultNTrials is the number of seeds each job runs.
	DefaultNTrials = 3

	// DefaultPartition is the cluster partition jobs are submitted to.
	DefaultPartition = "debug"

	// DefaultSubmitCommand submits a job script.
	DefaultSubmitCommand = "sbatch"

	// FirstOrderDir is the batch directory name for the first-order preset.
	FirstOrderDir = "first_order"
)

// Statistic names logged for every trial.
const (
	StatInputUniqueness  = "Input Uniqueness"
	StatInputOverlap     = "Input Overlap"
	StatInputCorrelation = "Input Correlation"
	StatSPUniqueness     = "SP Uniqueness"
	StatSPOverlap        = "SP Overlap"
	StatSPCorrelation    = "SP Correlation"
)

// StatNames lists the statistics in the order they are logged.
var StatNames = []string{
	StatInputUniqueness,
	StatInputOverlap,
	StatInputCorrelation,
	StatSPUniqueness,
	StatSPOverlap,
	StatSPCorrelation,
}
