package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/spexplore/internal/constants"
	"github.com/spf13/cobra"
)

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spexplore",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Log level")
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.spexplore/
// MUST be called for any test that loads or saves config
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)
	t.Cleanup(func() {
		os.Setenv("HOME", oldHome)
	})
	for _, env := range []string{"SPEXPLORE_RESULTS_DIR", "SPEXPLORE_PARTITION", "SPEXPLORE_NTRIALS", "SPEXPLORE_LOG_LEVEL", "SPEXPLORE_SUBMIT_COMMAND"} {
		t.Setenv(env, "")
	}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Args(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"none", nil, false},
		{"single run", []string{"dir", "3", "42"}, false},
		{"one", []string{"dir"}, true},
		{"two", []string{"dir", "3"}, true},
		{"four", []string{"dir", "3", "42", "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			err := root.Args(root, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "sweep", "run", "seeds", "collect", "results", "config", "mcp-server"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	for _, flag := range []string{"json", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		ntrials, seed string
		wantN         int
		wantSeed      int64
		wantErr       bool
	}{
		{"3", "42", 3, 42, false},
		{"0", "0", 0, 0, false},
		{"three", "42", 0, 0, true},
		{"3", "4.2", 0, 0, true},
	}
	for _, tt := range tests {
		n, s, err := parseRunArgs(tt.ntrials, tt.seed)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRunArgs(%q, %q) error = %v, wantErr %v", tt.ntrials, tt.seed, err, tt.wantErr)
			continue
		}
		if n != tt.wantN || s != tt.wantSeed {
			t.Errorf("parseRunArgs(%q, %q) = %d, %d", tt.ntrials, tt.seed, n, s)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	root := newTestRootCmd()
	root.AddCommand(newVersionCmd())

	out, err := execute(t, root, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestSeedsCmd(t *testing.T) {
	root := newTestRootCmd()
	root.AddCommand(newSeedsCmd())

	out, err := execute(t, root, "seeds", "3", "5489", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Seeds []int64 `json:"seeds"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	want := []int64{814723686, 905791937, 126986816}
	if len(got.Seeds) != 3 || got.Seeds[0] != want[0] || got.Seeds[1] != want[1] || got.Seeds[2] != want[2] {
		t.Errorf("seeds = %v, want %v", got.Seeds, want)
	}

	if _, err := execute(t, root, "seeds", "3", "-1"); err == nil {
		t.Error("seeds with negative seed succeeded, want error")
	}
}

func TestSweepCmd_DryRun(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	baseDir := filepath.Join(tmpDir, "batch")

	root := newTestRootCmd()
	root.AddCommand(newSweepCmd())
	out, err := execute(t, root, "sweep", "--dry-run", "--base-dir", baseDir, "--ntrials", "1", "--json")
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	var got struct {
		Summary struct {
			Jobs   int `json:"jobs"`
			Dirs   int `json:"dirs"`
			Groups int `json:"groups"`
		} `json:"summary"`
		DryRun bool `json:"dry_run"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	// Two first-order experiments, three values each, two modes, one trial.
	if got.Summary.Jobs != 12 || got.Summary.Dirs != 12 || got.Summary.Groups != 12 || !got.DryRun {
		t.Errorf("summary = %+v", got)
	}

	runner := filepath.Join(baseDir, "global", "nactive", "nactive_1", "0", constants.RunnerFile)
	script, err := os.ReadFile(runner)
	if err != nil {
		t.Fatalf("runner not written: %v", err)
	}
	if !strings.Contains(string(script), "#SBATCH --partition=debug") {
		t.Errorf("runner missing default partition:\n%s", script)
	}
	if _, err := os.Stat(filepath.Join(baseDir, constants.ResultsDBFile)); err != nil {
		t.Errorf("results database not created: %v", err)
	}
}

func TestSweepCmd_Catalog(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	baseDir := filepath.Join(tmpDir, "batch")
	catalog := filepath.Join(tmpDir, "sweeps.yaml")
	content := `
experiments:
  - name: seg_th
    time_limit: ["00-00:10:00", "00-00:20:00"]
    memory_limit: 256
    parameters:
      - name: seg_th
        values: [1, 2]
`
	if err := os.WriteFile(catalog, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	root := newTestRootCmd()
	root.AddCommand(newSweepCmd())
	out, err := execute(t, root, "sweep", "--dry-run", "--catalog", catalog, "--base-dir", baseDir, "--ntrials", "2", "--partition", "short")
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if !strings.Contains(out, "Staged (dry run) 8 job(s)") {
		t.Errorf("unexpected output: %q", out)
	}
	script, err := os.ReadFile(filepath.Join(baseDir, "local", "seg_th", "seg_th_2", "1", constants.RunnerFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"#SBATCH --partition=short", "#SBATCH --time=00-00:20:00", "#SBATCH --mem=256"} {
		if !strings.Contains(string(script), want) {
			t.Errorf("runner missing %q:\n%s", want, script)
		}
	}
}

func TestRunCmd_NoRegionCommand(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	root := newTestRootCmd()
	root.AddCommand(newRunCmd())
	_, err := execute(t, root, "run", tmpDir, "1", "42")
	if err == nil || !strings.Contains(err.Error(), "region.command") {
		t.Errorf("run error = %v, want region.command hint", err)
	}
}

func TestRunCmd_BadArgs(t *testing.T) {
	root := newTestRootCmd()
	root.AddCommand(newRunCmd())
	if _, err := execute(t, root, "run", "dir", "x", "42"); err == nil {
		t.Error("run with bad ntrials succeeded, want error")
	}
}

func TestConfigSetGet(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	root := newTestRootCmd()
	root.AddCommand(newConfigCmd())

	if _, err := execute(t, root, "config", "set", "cluster.partition", "gpu"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out, err := execute(t, root, "config", "get", "cluster.partition", "--json")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if got["value"] != "gpu" {
		t.Errorf("value = %v, want gpu", got["value"])
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".spexplore", "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	if _, err := execute(t, root, "config", "set", "sweep.ntrials", "zero"); err == nil {
		t.Error("config set with invalid value succeeded, want error")
	}
	if _, err := execute(t, root, "config", "get", "no.such.key"); err == nil {
		t.Error("config get with unknown key succeeded, want error")
	}
}

func TestConfigList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	root := newTestRootCmd()
	root.AddCommand(newConfigCmd())
	out, err := execute(t, root, "config", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cluster.partition:", "debug", "sweep.ntrials:", "region.command:", "(not set)"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list missing %q:\n%s", want, out)
		}
	}
}

func TestResultsCmd_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	baseDir := filepath.Join(tmpDir, "batch")

	root := newTestRootCmd()
	root.AddCommand(newCollectCmd(), newResultsCmd())

	out, err := execute(t, root, "collect", "--base-dir", baseDir)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if !strings.Contains(out, "Imported 0 statistic(s) from 0 run(s)") {
		t.Errorf("collect output = %q", out)
	}

	out, err = execute(t, root, "results", "--base-dir", baseDir)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if !strings.Contains(out, "No results collected yet") {
		t.Errorf("results output = %q", out)
	}
}
