// Package slurm writes SLURM batch scripts and submits them.
package slurm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/kballard/go-shellquote"
)

// RunnerSpec describes one job script.
type RunnerSpec struct {
	Command    string
	RunnerPath string
	JobName    string
	Partition  string
	StdoutPath string
	StderrPath string
	// TimeLimit uses the SLURM "D-HH:MM:SS" form.
	TimeLimit string
	// MemoryLimit is in megabytes.
	MemoryLimit int
}

var timeLimitRE = regexp.MustCompile(`^(\d+)-(\d{2}):(\d{2}):(\d{2})$`)

// ParseTimeLimit converts a "D-HH:MM:SS" limit to a duration.
func ParseTimeLimit(s string) (time.Duration, error) {
	m := timeLimitRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("time limit %q is not in D-HH:MM:SS form", s)
	}
	days, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	if hours > 23 || minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("time limit %q has an out of range field", s)
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("time limit %q must be positive", s)
	}
	return d, nil
}

// Validate checks that spec can produce a usable script.
func (s RunnerSpec) Validate() error {
	switch {
	case s.Command == "":
		return errors.New("runner command is required")
	case s.RunnerPath == "":
		return errors.New("runner path is required")
	case s.JobName == "":
		return errors.New("job name is required")
	case s.Partition == "":
		return errors.New("partition is required")
	case s.MemoryLimit <= 0:
		return fmt.Errorf("memory limit must be positive, got %d", s.MemoryLimit)
	}
	for _, v := range []string{s.JobName, s.Partition, s.StdoutPath, s.StderrPath} {
		if strings.ContainsAny(v, "\n\r") {
			return fmt.Errorf("runner field %q contains a newline", v)
		}
	}
	if _, err := ParseTimeLimit(s.TimeLimit); err != nil {
		return err
	}
	return nil
}

var scriptTemplate = template.Must(template.New("runner").Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --partition={{.Partition}}
#SBATCH --output={{.StdoutPath}}
#SBATCH --error={{.StderrPath}}
#SBATCH --time={{.TimeLimit}}
#SBATCH --mem={{.MemoryLimit}}
#SBATCH --ntasks=1

{{.Command}}
`))

// RenderRunner returns the script text for spec.
func RenderRunner(spec RunnerSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, spec); err != nil {
		return nil, fmt.Errorf("rendering runner: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateRunner writes the job script to spec.RunnerPath.
func CreateRunner(spec RunnerSpec) error {
	script, err := RenderRunner(spec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(spec.RunnerPath, script, 0755); err != nil {
		return fmt.Errorf("writing runner: %w", err)
	}
	return nil
}

// JobCommand returns the shell command line that runs trials of the run in
// dir. Program and dir are quoted for the shell, so spaces and shell
// metacharacters in either reach the job unchanged.
func JobCommand(program, dir string, ntrials int, seed int64) string {
	return shellquote.Join(program, dir, strconv.Itoa(ntrials), strconv.FormatInt(seed, 10))
}
