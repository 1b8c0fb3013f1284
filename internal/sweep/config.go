// Package sweep builds Spatial Pooler configurations and expands parameter
// sweeps into one concrete configuration per combination and trial.
package sweep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/nvandessel/spexplore/internal/constants"
)

// Well known configuration keys.
const (
	KeyLogDir           = "log_dir"
	KeySeed             = "seed"
	KeyGlobalInhibition = "global_inhibition"
)

// Config is a flat parameter mapping handed to the region model. Values are
// nil, bool, string, int64 or float64.
type Config map[string]any

// BuildBaseConfig returns the reference configuration for one experiment
// variant. Only the inhibition mode, the seed and the derived log directory
// vary; a nil seed is stored as null so the model picks its own.
func BuildBaseConfig(baseDir, experimentName string, globalInhibition bool, seed *int64) Config {
	var seedValue any
	if seed != nil {
		seedValue = *seed
	}
	return Config{
		"ninputs":           int64(100),
		"ncolumns":          int64(300),
		"pct_active":        nil,
		"nactive":           int64(6),
		KeyGlobalInhibition: globalInhibition,
		"trim":              1e-4,
		"disable_boost":     true,
		KeySeed:             seedValue,
		"nsynapses":         int64(20),
		"seg_th":            int64(2),
		"syn_th":            0.5,
		"pinc":              0.01,
		"pdec":              0.01,
		"pwindow":           0.5,
		"random_permanence": true,
		"nepochs":           int64(10),
		KeyLogDir:           filepath.Join(baseDir, ModeName(globalInhibition), experimentName),
	}
}

// ModeName returns the directory segment for an inhibition mode.
func ModeName(globalInhibition bool) string {
	return constants.ModeFor(globalInhibition).String()
}

// Modes lists the inhibition modes in the order experiments run them.
var Modes = []bool{true, false}

// Clone returns a shallow copy; values are scalars so this is a full copy.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// LogDir returns the configured log directory or "" when unset.
func (c Config) LogDir() string {
	s, _ := c[KeyLogDir].(string)
	return s
}

// Set stores v under key after normalizing it to a supported scalar type.
func (c Config) Set(key string, v any) error {
	n, err := Normalize(v)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", key, err)
	}
	c[key] = n
	return nil
}

// Normalize converts v to one of the scalar types a Config may hold.
// Integral numbers become int64 and other numbers float64.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MarshalConfig encodes cfg as JSON with sorted keys and four-space indentation.
func MarshalConfig(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(map[string]any(cfg), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalConfig decodes a configuration written by MarshalConfig.
func UnmarshalConfig(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parsing config: not a JSON object")
	}

	cfg := make(Config, len(raw))
	for k, v := range raw {
		if err := cfg.Set(k, v); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	return cfg, nil
}

// WriteConfig writes cfg to path.
func WriteConfig(path string, cfg Config) error {
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ReadConfig reads a configuration file written by WriteConfig.
func ReadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return UnmarshalConfig(data)
}
