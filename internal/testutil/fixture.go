package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Fixture is a judge directory, account store and web directory laid out
// under a test's temp dir
type Fixture struct {
	Root         string
	JudgeDir     string
	AccountsFile string
	WebDir       string
}

// FixtureAccounts are the accounts written by NewFixture.
// "carol" has changed her password to md5("secret").
var FixtureAccounts = map[string]map[string]any{
	"alice": {"pw": "alicepw", "changed_pw": false, "admin": false},
	"bob":   {"pw": "bobpw", "changed_pw": false, "admin": false},
	"carol": {"pw": "5ebe2294ecd0e0f08eab7690d2a6ee69", "changed_pw": true, "admin": false},
	"root":  {"pw": "rootpw", "changed_pw": false, "admin": true},
}

// FixtureResults is the results.json written by NewFixture
const FixtureResults = `{
  "alice": {"A": {"score": 10, "details": ["AC"], "warnings": ["slow"]}},
  "bob":   {"A": {"score": 4, "details": ["WA"], "warnings": ["w"]}}
}`

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>Judge</title></head>
<body>
<span id="username">{{.Username}}</span>
{{if .Admin}}<span id="admin">admin</span>{{end}}
<a href="/logout">Logout</a>
</body>
</html>`

const loginTemplate = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
<form id="login"><input name="username"><input name="password" type="password"></form>
</body>
</html>`

// NewFixture writes problems A and B, workspaces for alice and bob,
// results.json, accounts.json and the two views
func NewFixture(t testing.TB) *Fixture {
	t.Helper()

	root := t.TempDir()
	f := &Fixture{
		Root:         root,
		JudgeDir:     filepath.Join(root, "Judge"),
		AccountsFile: filepath.Join(root, "accounts.json"),
		WebDir:       filepath.Join(root, "web"),
	}

	f.mkdir(t, f.JudgeDir, "testcases", "A")
	f.mkdir(t, f.JudgeDir, "testcases", "B")
	f.mkdir(t, f.JudgeDir, "users", "alice")
	f.mkdir(t, f.JudgeDir, "users", "bob")
	f.mkdir(t, f.WebDir, "imgs")

	f.write(t, "", f.JudgeDir, "testcases", "A", "test01.inp")
	f.write(t, "", f.JudgeDir, "testcases", "A", "test02.inp")
	f.write(t, FixtureResults, f.JudgeDir, "results.json")

	accounts, err := json.Marshal(FixtureAccounts)
	if err != nil {
		t.Fatal(err)
	}
	f.write(t, string(accounts), f.AccountsFile)

	f.write(t, indexTemplate, f.WebDir, "index.html")
	f.write(t, loginTemplate, f.WebDir, "login.html")
	f.write(t, "body { margin: 0; }", f.WebDir, "styles.css")
	f.write(t, "\x89PNG", f.WebDir, "imgs", "about.png")

	return f
}

// Path joins parts onto the fixture root
func (f *Fixture) Path(parts ...string) string {
	return filepath.Join(append([]string{f.Root}, parts...)...)
}

func (f *Fixture) mkdir(t testing.TB, parts ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(parts...), 0o755); err != nil {
		t.Fatal(err)
	}
}

func (f *Fixture) write(t testing.TB, content string, parts ...string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(parts...), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
