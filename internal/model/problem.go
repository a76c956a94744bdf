package model

import "encoding/json"

// TestConfig is the per-problem configuration stored in config.cfg
type TestConfig struct {
	// Checker names the output checker; empty means the default comparison
	Checker      string
	PointPerTest float64
	// ICPC selects all-or-nothing scoring instead of per-test points
	ICPC          bool
	TimeLimitMs   int
	MemoryLimitMB int
	// InputFile and OutputFile are empty when the program uses stdin/stdout
	InputFile  string
	OutputFile string
	Selected   bool
	// Extra holds keys this portal does not interpret, passed through to clients
	Extra map[string]string
}

// DefaultTestConfig returns the configuration written for a problem seen for the first time
func DefaultTestConfig() TestConfig {
	return TestConfig{
		PointPerTest:  1,
		ICPC:          false,
		TimeLimitMs:   1000,
		MemoryLimitMB: 256,
		Selected:      true,
	}
}

// MarshalJSON encodes the config with the grader's key names. An unset checker
// is null and unset input/output files are false.
func (c TestConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 8+len(c.Extra))
	for k, v := range c.Extra {
		out[k] = v
	}
	out["checker"] = nil
	if c.Checker != "" {
		out["checker"] = c.Checker
	}
	out["point_per_test"] = c.PointPerTest
	out["icpc"] = c.ICPC
	out["time_limit"] = c.TimeLimitMs
	out["memory_limit"] = c.MemoryLimitMB
	out["input_file"] = fileOrFalse(c.InputFile)
	out["output_file"] = fileOrFalse(c.OutputFile)
	out["selected"] = c.Selected
	return json.Marshal(out)
}

func fileOrFalse(name string) any {
	if name == "" {
		return false
	}
	return name
}

// TestInfo is a problem's sub-test list and configuration as pushed to clients
type TestInfo struct {
	Test   string     `json:"test"`
	List   []string   `json:"list"`
	Config TestConfig `json:"config"`
}
