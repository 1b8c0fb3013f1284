package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys lists the dot-notation keys accepted by Get and Set.
var Keys = []string{
	"paths.results_dir",
	"paths.program",
	"cluster.partition",
	"cluster.submit_command",
	"cluster.dry_run",
	"cluster.submit_rate",
	"dataset.nsamples",
	"dataset.nbits",
	"dataset.pct_active",
	"dataset.pct_noise",
	"dataset.seed",
	"sweep.ntrials",
	"region.command",
	"logging.level",
}

// Get retrieves a configuration value by dot-notation key.
func (c *SpexploreConfig) Get(key string) (any, bool) {
	switch key {
	case "paths.results_dir":
		return c.Paths.ResultsDir, true
	case "paths.program":
		return c.Paths.Program, true
	case "cluster.partition":
		return c.Cluster.Partition, true
	case "cluster.submit_command":
		return c.Cluster.SubmitCommand, true
	case "cluster.dry_run":
		return c.Cluster.DryRun, true
	case "cluster.submit_rate":
		return c.Cluster.SubmitRate, true
	case "dataset.nsamples":
		return c.Dataset.NSamples, true
	case "dataset.nbits":
		return c.Dataset.NBits, true
	case "dataset.pct_active":
		return c.Dataset.PctActive, true
	case "dataset.pct_noise":
		return c.Dataset.PctNoise, true
	case "dataset.seed":
		return c.Dataset.Seed, true
	case "sweep.ntrials":
		return c.Sweep.NTrials, true
	case "region.command":
		return strings.Join(c.Region.Command, " "), true
	case "logging.level":
		return c.Logging.Level, true
	default:
		return nil, false
	}
}

// Set sets a configuration value by dot-notation key and validates the
// result. On error the config is left unchanged.
func (c *SpexploreConfig) Set(key, value string) error {
	next := *c
	next.Region.Command = append([]string(nil), c.Region.Command...)

	var err error
	switch key {
	case "paths.results_dir":
		next.Paths.ResultsDir = value
	case "paths.program":
		next.Paths.Program = value
	case "cluster.partition":
		next.Cluster.Partition = value
	case "cluster.submit_command":
		next.Cluster.SubmitCommand = value
	case "cluster.dry_run":
		next.Cluster.DryRun, err = strconv.ParseBool(value)
	case "cluster.submit_rate":
		next.Cluster.SubmitRate, err = strconv.ParseFloat(value, 64)
	case "dataset.nsamples":
		next.Dataset.NSamples, err = strconv.Atoi(value)
	case "dataset.nbits":
		next.Dataset.NBits, err = strconv.Atoi(value)
	case "dataset.pct_active":
		next.Dataset.PctActive, err = strconv.ParseFloat(value, 64)
	case "dataset.pct_noise":
		next.Dataset.PctNoise, err = strconv.ParseFloat(value, 64)
	case "dataset.seed":
		next.Dataset.Seed, err = strconv.ParseInt(value, 10, 64)
	case "sweep.ntrials":
		next.Sweep.NTrials, err = strconv.Atoi(value)
	case "region.command":
		next.Region.Command = strings.Fields(value)
	case "logging.level":
		next.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %s", key, value)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
