package slurm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestParseTimeLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00-00:30:00", 30 * time.Minute, false},
		{"00-01:00:00", time.Hour, false},
		{"2-03:04:05", 51*time.Hour + 4*time.Minute + 5*time.Second, false},
		{"00-00:00:00", 0, true},
		{"00-24:00:00", 0, true},
		{"00-00:60:00", 0, true},
		{"01:00:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeLimit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeLimit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimeLimit(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func validSpec(dir string) RunnerSpec {
	return RunnerSpec{
		Command:     "spexplore " + dir + " 1 42",
		RunnerPath:  filepath.Join(dir, "runner.sh"),
		JobName:     "ncolumns-G",
		Partition:   "debug",
		StdoutPath:  filepath.Join(dir, "stdio.txt"),
		StderrPath:  filepath.Join(dir, "stderr.txt"),
		TimeLimit:   "00-00:30:00",
		MemoryLimit: 512,
	}
}

func TestCreateRunner(t *testing.T) {
	dir := t.TempDir()
	spec := validSpec(dir)
	if err := CreateRunner(spec); err != nil {
		t.Fatalf("CreateRunner() error = %v", err)
	}

	data, err := os.ReadFile(spec.RunnerPath)
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)
	if !strings.HasPrefix(script, "#!/bin/bash\n") {
		t.Errorf("script missing shebang:\n%s", script)
	}
	for _, want := range []string{
		"#SBATCH --job-name=ncolumns-G",
		"#SBATCH --partition=debug",
		"#SBATCH --output=" + spec.StdoutPath,
		"#SBATCH --error=" + spec.StderrPath,
		"#SBATCH --time=00-00:30:00",
		"#SBATCH --mem=512",
		spec.Command,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(spec.RunnerPath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm()&0100 == 0 {
			t.Errorf("runner mode = %v, want executable", info.Mode().Perm())
		}
	}
}

func TestRunnerSpec_Validate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		mutate func(*RunnerSpec)
	}{
		{"no command", func(s *RunnerSpec) { s.Command = "" }},
		{"no path", func(s *RunnerSpec) { s.RunnerPath = "" }},
		{"no job name", func(s *RunnerSpec) { s.JobName = "" }},
		{"no partition", func(s *RunnerSpec) { s.Partition = "" }},
		{"zero memory", func(s *RunnerSpec) { s.MemoryLimit = 0 }},
		{"bad time", func(s *RunnerSpec) { s.TimeLimit = "30m" }},
		{"newline in name", func(s *RunnerSpec) { s.JobName = "a\n#SBATCH --x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec(dir)
			tt.mutate(&spec)
			if err := spec.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
			if err := CreateRunner(spec); err == nil {
				t.Error("CreateRunner() = nil, want error")
			}
		})
	}
}

func TestParseJobID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Submitted batch job 12345\n", "12345"},
		{"678", "678"},
		{"910;cluster\n", "910"},
		{"", ""},
		{"sbatch: error: invalid partition", ""},
	}
	for _, tt := range tests {
		if got := ParseJobID(tt.in); got != tt.want {
			t.Errorf("ParseJobID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommandSubmitter(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	s := &CommandSubmitter{Command: []string{"sh", "-c", `test -n "$1" && echo "Submitted batch job 42"`, "sh"}}
	id, err := s.Submit(context.Background(), "/tmp/runner.sh")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "42" {
		t.Errorf("Submit() id = %q, want 42", id)
	}
}

func TestCommandSubmitter_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	s := &CommandSubmitter{Command: []string{"sh", "-c", "echo boom >&2; exit 1", "sh"}}
	_, err := s.Submit(context.Background(), "runner.sh")
	if err == nil {
		t.Fatal("Submit() = nil, want error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not include stderr", err)
	}
}

func TestCommandSubmitter_Empty(t *testing.T) {
	s := NewCommandSubmitter("   ")
	if _, err := s.Submit(context.Background(), "runner.sh"); err == nil {
		t.Error("Submit() with empty command = nil, want error")
	}
}

func TestNewCommandSubmitter(t *testing.T) {
	s := NewCommandSubmitter("sbatch  --parsable")
	if len(s.Command) != 2 || s.Command[0] != "sbatch" || s.Command[1] != "--parsable" {
		t.Errorf("Command = %q", s.Command)
	}
}

func TestDryRunSubmitter(t *testing.T) {
	d := &DryRunSubmitter{}
	for _, p := range []string{"a/runner.sh", "b/runner.sh"} {
		if _, err := d.Submit(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
	got := d.Paths()
	if len(got) != 2 || got[0] != "a/runner.sh" || got[1] != "b/runner.sh" {
		t.Errorf("Paths() = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Submit(ctx, "c/runner.sh"); err == nil {
		t.Error("Submit() on cancelled context = nil, want error")
	}
}

// writeArgsProgram writes a script that prints one argument per line.
func writeArgsProgram(t *testing.T, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "spexplore")
	script := "#!/bin/sh\nfor a in \"$@\"; do printf '%s\\n' \"$a\"; done\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJobCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	program := writeArgsProgram(t, filepath.Join(t.TempDir(), "my tools"))

	tests := []struct {
		name string
		dir  string
	}{
		{"plain", "/scratch/batch/global/ncolumns/ncolumns_5/0"},
		{"space", "/scratch/my results/global/ncolumns/ncolumns_5/0"},
		{"dollar", "/scratch/batch$HOME/local/nactive/nactive_1/2"},
		{"quotes and backticks", "/scratch/`id`/it's \"here\"\\/0"},
		{"operators", "/scratch/a;b|c&d>e/0"},
	}
	for _, tt := range tests {
		dir := tt.dir
		t.Run(tt.name, func(t *testing.T) {
			cmd := JobCommand(program, dir, 3, 814723686)
			out, err := exec.Command(bash, "-c", cmd).Output()
			if err != nil {
				t.Fatalf("running %q: %v", cmd, err)
			}
			got := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
			want := []string{dir, "3", "814723686"}
			if len(got) != len(want) {
				t.Fatalf("args = %q, want %q", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
				}
			}
		})
	}
}
