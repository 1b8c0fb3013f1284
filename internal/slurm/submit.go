package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// Submitter hands a job script to the cluster scheduler and returns the
// scheduler's job ID (empty when unknown).
type Submitter interface {
	Submit(ctx context.Context, runnerPath string) (string, error)
}

// CommandSubmitter runs an external submit command such as sbatch.
type CommandSubmitter struct {
	// Command is the program and leading arguments; the script path is
	// appended.
	Command []string
}

// NewCommandSubmitter splits a command line such as "sbatch --parsable".
func NewCommandSubmitter(command string) *CommandSubmitter {
	return &CommandSubmitter{Command: strings.Fields(command)}
}

var jobIDRE = regexp.MustCompile(`(?:Submitted batch job\s+)?(\d+)\s*$`)

// Submit runs the submit command and parses the job ID from its output.
func (s *CommandSubmitter) Submit(ctx context.Context, runnerPath string) (string, error) {
	if len(s.Command) == 0 {
		return "", fmt.Errorf("submit command is empty")
	}
	args := append(append([]string{}, s.Command[1:]...), runnerPath)
	cmd := exec.CommandContext(ctx, s.Command[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("submitting %s: %w: %s", runnerPath, err, strings.TrimSpace(stderr.String()))
	}
	return ParseJobID(stdout.String()), nil
}

// ParseJobID extracts the job ID from sbatch output ("Submitted batch job
// 123" or the --parsable "123[;cluster]" form). It returns "" when none is
// found.
func ParseJobID(output string) string {
	out := strings.TrimSpace(output)
	if i := strings.IndexByte(out, ';'); i >= 0 {
		out = out[:i]
	}
	m := jobIDRE.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

// DryRunSubmitter records scripts without submitting them. It is safe for
// concurrent use.
type DryRunSubmitter struct {
	mu    sync.Mutex
	paths []string
}

// Submit records runnerPath.
func (d *DryRunSubmitter) Submit(ctx context.Context, runnerPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, runnerPath)
	return "", nil
}

// Paths returns the recorded script paths in submission order.
func (d *DryRunSubmitter) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}
