// Package mcp provides an MCP (Model Context Protocol) server exposing a
// batch's jobs and results to agents.
package mcp

import (
	"github.com/nvandessel/spexplore/internal/results"
)

// ResultsInput defines the input for the spexplore_results tool.
type ResultsInput struct {
	Experiment string `json:"experiment,omitempty" jsonschema:"Only summarize this experiment"`
	Collect    bool   `json:"collect,omitempty" jsonschema:"Import run statistics from the batch directory before summarizing"`
}

// ResultsOutput defines the output for the spexplore_results tool.
type ResultsOutput struct {
	Summaries []results.Summary      `json:"summaries" jsonschema:"Mean and standard deviation per experiment, mode, group and statistic"`
	Count     int                    `json:"count" jsonschema:"Number of summaries"`
	Collected *results.CollectResult `json:"collected,omitempty" jsonschema:"What was imported when collect was requested"`
}

// JobsInput defines the input for the spexplore_jobs tool.
type JobsInput struct {
	Experiment string `json:"experiment,omitempty" jsonschema:"Only list jobs of this experiment"`
}

// JobsOutput defines the output for the spexplore_jobs tool.
type JobsOutput struct {
	Jobs  []results.Job `json:"jobs" jsonschema:"Submitted jobs in submission order"`
	Count int           `json:"count" jsonschema:"Number of jobs"`
}

// SeedsInput defines the input for the spexplore_seeds tool.
type SeedsInput struct {
	NTrials int   `json:"ntrials" jsonschema:"Number of trial seeds to derive"`
	Seed    int64 `json:"seed" jsonschema:"Seed of the run, between 0 and 4294967295"`
}

// SeedsOutput defines the output for the spexplore_seeds tool.
type SeedsOutput struct {
	Seeds []int64 `json:"seeds" jsonschema:"Derived trial seeds in trial order"`
}
