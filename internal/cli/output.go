package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Viewer:
		o.printViewer(v)
	case Session:
		o.printSession(v)
	case Snapshot:
		o.printSnapshot(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Viewer response type (matches API)
type Viewer struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// Session combines viewer and token
type Session struct {
	SessionToken string `json:"session_token"`
	Viewer       Viewer `json:"viewer"`
}

// Snapshot response type
type Snapshot struct {
	Seq     uint64                               `json:"seq"`
	Results map[string]map[string]map[string]any `json:"results"`
	Tests   []string                             `json:"tests"`
	Users   []string                             `json:"users"`
	Configs []TestInfo                           `json:"configs"`
}

// TestInfo response type
type TestInfo struct {
	Test   string         `json:"test"`
	List   []string       `json:"list"`
	Config map[string]any `json:"config"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Sessions *int   `json:"sessions,omitempty"`
	Clients  *int   `json:"clients,omitempty"`
}

func (o *Output) printViewer(v Viewer) {
	adminStr := "no"
	if v.Admin {
		adminStr = "yes"
	}
	fmt.Fprintf(o.w, "User: %s\n", v.Username)
	fmt.Fprintf(o.w, "Admin: %s\n", adminStr)
}

func (o *Output) printSession(s Session) {
	o.printViewer(s.Viewer)
	fmt.Fprintf(o.w, "Token: %s\n", s.SessionToken)
}

func (o *Output) printSnapshot(s Snapshot) {
	fmt.Fprintf(o.w, "Tests: %s\n", strings.Join(s.Tests, ", "))
	fmt.Fprintf(o.w, "Users: %s\n", strings.Join(s.Users, ", "))

	if len(s.Configs) > 0 {
		fmt.Fprintln(o.w, "\nProblems:")
		for _, c := range s.Configs {
			fmt.Fprintf(o.w, "  %s: %d tests\n", c.Test, len(c.List))
		}
	}

	if len(s.Results) == 0 {
		return
	}
	fmt.Fprintln(o.w, "\nResults:")
	for _, user := range sortedKeys(s.Results) {
		fmt.Fprintf(o.w, "  %s\n", user)
		problems := s.Results[user]
		for _, problem := range sortedKeys(problems) {
			verdict, _ := json.Marshal(problems[problem])
			fmt.Fprintf(o.w, "    %s: %s\n", problem, verdict)
		}
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Sessions != nil {
		fmt.Fprintf(o.w, "Sessions: %d\n", *h.Sessions)
	}
	if h.Clients != nil {
		fmt.Fprintf(o.w, "Clients: %d\n", *h.Clients)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
