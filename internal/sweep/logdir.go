package sweep

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/spexplore/internal/constants"
)

// LogDirInfo is what a generated log_dir encodes:
// <base>/<mode>/<experiment>/<group>-<trial>.
type LogDirInfo struct {
	Base       string
	Mode       constants.Mode
	Experiment string
	Group      string
	Trial      int
}

// ParseLogDir splits a generated log_dir into its parts.
func ParseLogDir(logDir string) (LogDirInfo, error) {
	clean := filepath.Clean(logDir)
	group, trial, err := SplitTrialSuffix(filepath.Base(clean))
	if err != nil {
		return LogDirInfo{}, err
	}
	expDir := filepath.Dir(clean)
	modeDir := filepath.Dir(expDir)
	mode := constants.Mode(filepath.Base(modeDir))
	if !mode.Valid() {
		return LogDirInfo{}, fmt.Errorf("log dir %q has unknown mode %q", logDir, mode)
	}
	return LogDirInfo{
		Base:       filepath.Dir(modeDir),
		Mode:       mode,
		Experiment: filepath.Base(expDir),
		Group:      group,
		Trial:      trial,
	}, nil
}

// RunDir returns the directory a generated configuration runs in: trials
// are grouped per parameter value under <group>/<trial>.
func RunDir(logDir string) (string, error) {
	clean := filepath.Clean(logDir)
	group, trial, err := SplitTrialSuffix(filepath.Base(clean))
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(clean), group, fmt.Sprint(trial)), nil
}
