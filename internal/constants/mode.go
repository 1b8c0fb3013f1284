package constants

// Mode is the inhibition mode of a Spatial Pooler run.
type Mode string

const (
	// ModeGlobal selects active columns across the whole region.
	ModeGlobal Mode = "global"

	// ModeLocal selects active columns within each neighborhood.
	ModeLocal Mode = "local"
)

// ModeFor maps the global_inhibition flag to a Mode.
func ModeFor(globalInhibition bool) Mode {
	if globalInhibition {
		return ModeGlobal
	}
	return ModeLocal
}

// Valid returns true if the mode is a recognized value.
func (m Mode) Valid() bool {
	switch m {
	case ModeGlobal, ModeLocal:
		return true
	}
	return false
}

// Letter returns the job name tag for the mode.
func (m Mode) Letter() string {
	if m == ModeGlobal {
		return "G"
	}
	return "L"
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}
