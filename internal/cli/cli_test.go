package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestConfigTokenRoundTrip(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	// Missing token file is fine
	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token)

	require.NoError(t, c.SaveToken("abc123"))
	info, err := os.Stat(c.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := &Config{TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc123", loaded.Token)

	require.NoError(t, loaded.ClearToken())
	assert.Empty(t, loaded.Token)
	_, err = os.Stat(c.TokenFile)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is harmless
	assert.NoError(t, loaded.ClearToken())
}

func TestConfigExplicitTokenWins(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0600))

	c := &Config{Token: "from-flag", TokenFile: tokenFile}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "from-flag", c.Token)

	c = &Config{TokenFile: tokenFile}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "from-file", c.Token)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:3000", "ws://localhost:3000/ws"},
		{"http://localhost:3000/", "ws://localhost:3000/ws"},
		{"https://judge.example.com", "wss://judge.example.com/ws"},
		{"https://judge.example.com/portal", "wss://judge.example.com/portal/ws"},
		{"ws://127.0.0.1:9000", "ws://127.0.0.1:9000/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := websocketURL(tt.server)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := websocketURL("ftp://example.com")
	assert.Error(t, err)
}

func TestParseSSE(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		`data: {"status":"connected"}`,
		"",
		": keepalive",
		"",
		"event: result",
		"data: line one",
		"data: line two",
		"",
		"event: truncated",
		"data: never terminated",
	}, "\n")

	type event struct{ name, data string }
	var got []event
	err := parseSSE(strings.NewReader(stream), func(name, data string) error {
		got = append(got, event{name, data})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []event{
		{"connected", `{"status":"connected"}`},
		{"result", "line one\nline two"},
	}, got)
}

func TestParseSSEStopsOnCallbackError(t *testing.T) {
	stream := "event: a\ndata: 1\n\nevent: b\ndata: 2\n\n"
	stop := errors.New("stop")

	calls := 0
	err := parseSSE(strings.NewReader(stream), func(string, string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestPrintSnapshotText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("text", &buf)

	out.Print(Snapshot{
		Tests: []string{"A", "B"},
		Users: []string{"alice", "bob"},
		Configs: []TestInfo{
			{Test: "A", List: []string{"test01", "test02"}},
			{Test: "B"},
		},
		Results: map[string]map[string]map[string]any{
			"bob":   {"A": {"details": []any{}}},
			"alice": {"B": {"score": 3}, "A": {"score": 10}},
		},
	})

	assert.Equal(t, `Tests: A, B
Users: alice, bob

Problems:
  A: 2 tests
  B: 0 tests

Results:
  alice
    A: {"score":10}
    B: {"score":3}
  bob
    A: {"details":[]}
`, buf.String())
}

func TestPrintJSONAndMessages(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("json", &buf)

	out.Print(Viewer{Username: "alice"})
	out.PrintMessage("done")

	assert.Equal(t, "{\n  \"username\": \"alice\",\n  \"admin\": false\n}\n{\"message\":\"done\"}\n", buf.String())
}

func TestPrintViewerText(t *testing.T) {
	var buf bytes.Buffer
	NewOutput("text", &buf).Print(Session{
		SessionToken: "tok",
		Viewer:       Viewer{Username: "root", Admin: true},
	})

	assert.Equal(t, "User: root\nAdmin: yes\nToken: tok\n", buf.String())
}

func TestClientDecodesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid session"}}`))
		default:
			http.Error(w, "Page not found (404)", http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "tok")

	err := c.Get(t.Context(), "/api/v1/me", nil)
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)
	assert.Equal(t, "UNAUTHORIZED", re.Code)
	assert.Equal(t, "Invalid session (UNAUTHORIZED)", err.Error())
	assert.ErrorIs(t, explainAuth(err), errNotLoggedIn)

	err = c.Get(t.Context(), "/nope", nil)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "HTTP 404: Page not found (404)", err.Error())
	assert.Equal(t, err, explainAuth(err))
}

func TestClientTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	var trace bytes.Buffer
	c := NewClient(server.URL, "")
	c.Trace(&trace)

	var health HealthResult
	require.NoError(t, c.Get(t.Context(), "/api/v1/health", &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "> GET "+server.URL+"/api/v1/health\n", trace.String())
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("JUDGECTL_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"hash-password"})
	cmd.SetIn(strings.NewReader("hunter2\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestHashPasswordCommandRejectsEmpty(t *testing.T) {
	t.Setenv("JUDGECTL_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"hash-password"})
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
