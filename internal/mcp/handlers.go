package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/spexplore/internal/ratelimit"
	"github.com/nvandessel/spexplore/internal/results"
	"github.com/nvandessel/spexplore/internal/seed"
)

// maxSeeds bounds spexplore_seeds requests.
const maxSeeds = 10000

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spexplore_results",
		Description: "Summarize logged trial statistics (mean, stddev, count) per experiment, inhibition mode and parameter group",
	}, s.handleResults)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spexplore_jobs",
		Description: "List the cluster jobs submitted for this batch",
	}, s.handleJobs)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spexplore_seeds",
		Description: "Derive the per-trial seeds a run uses from its seed",
	}, s.handleSeeds)
}

// auditTool records one tool call. Failures to write are ignored so the
// audit log never breaks a tool call.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]any) {
	entry := map[string]any{
		"tool":        tool,
		"duration_ms": time.Since(start).Milliseconds(),
		"status":      "success",
		"params":      params,
	}
	if err != nil {
		entry["status"] = "error"
		entry["error"] = err.Error()
	}
	_ = s.audit.Log(entry)
}

func (s *Server) handleResults(ctx context.Context, req *sdk.CallToolRequest, args ResultsInput) (_ *sdk.CallToolResult, _ ResultsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("spexplore_results", start, retErr, map[string]any{
			"experiment": args.Experiment, "collect": args.Collect,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "spexplore_results"); err != nil {
		return nil, ResultsOutput{}, err
	}

	var out ResultsOutput
	if args.Collect {
		res, err := s.store.Collect(ctx, s.baseDir)
		if err != nil {
			return nil, ResultsOutput{}, err
		}
		out.Collected = &res
	}

	sums, err := s.store.Summaries(ctx, args.Experiment)
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	if sums == nil {
		sums = []results.Summary{}
	}
	out.Summaries = sums
	out.Count = len(sums)
	return nil, out, nil
}

func (s *Server) handleJobs(ctx context.Context, req *sdk.CallToolRequest, args JobsInput) (_ *sdk.CallToolResult, _ JobsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("spexplore_jobs", start, retErr, map[string]any{"experiment": args.Experiment})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "spexplore_jobs"); err != nil {
		return nil, JobsOutput{}, err
	}

	jobs, err := s.store.Jobs(ctx, args.Experiment)
	if err != nil {
		return nil, JobsOutput{}, err
	}
	if jobs == nil {
		jobs = []results.Job{}
	}
	return nil, JobsOutput{Jobs: jobs, Count: len(jobs)}, nil
}

func (s *Server) handleSeeds(ctx context.Context, req *sdk.CallToolRequest, args SeedsInput) (_ *sdk.CallToolResult, _ SeedsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("spexplore_seeds", start, retErr, map[string]any{"ntrials": args.NTrials, "seed": args.Seed})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "spexplore_seeds"); err != nil {
		return nil, SeedsOutput{}, err
	}
	if args.NTrials < 0 || args.NTrials > maxSeeds {
		return nil, SeedsOutput{}, fmt.Errorf("ntrials must be between 0 and %d, got %d", maxSeeds, args.NTrials)
	}

	seeds, err := seed.GenerateSeeds(args.NTrials, args.Seed)
	if err != nil {
		return nil, SeedsOutput{}, err
	}
	return nil, SeedsOutput{Seeds: seeds}, nil
}
