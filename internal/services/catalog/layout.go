package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/mcoot/judgeportal/internal/filex"
)

// Layout locates the tests and users roots
type Layout struct {
	TestsDir string `json:"testdir"`
	UsersDir string `json:"usersdir"`
}

// WorkspaceDir returns the submission directory of username
func (l Layout) WorkspaceDir(username string) string {
	return filepath.Join(l.UsersDir, username)
}

// ProblemDir returns the directory of a test problem
func (l Layout) ProblemDir(name string) string {
	return filepath.Join(l.TestsDir, name)
}

// Layout reads the global config.json. Missing keys fall back to the
// testcases and users directories next to it; a missing file means all
// defaults, a malformed file is an error.
func (s *Service) Layout(ctx context.Context) (Layout, error) {
	layout := Layout{}

	data, err := filex.ReadFile(ctx, s.ConfigPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &layout); err != nil {
			return Layout{}, fmt.Errorf("parse %s: %w", s.ConfigPath(), err)
		}
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("global config missing, using defaults", slog.String("path", s.ConfigPath()))
	default:
		return Layout{}, fmt.Errorf("read global config: %w", err)
	}

	if layout.TestsDir == "" {
		layout.TestsDir = filepath.Join(s.judgeDir, "testcases")
	}
	if layout.UsersDir == "" {
		layout.UsersDir = filepath.Join(s.judgeDir, "users")
	}
	return layout, nil
}

// ConfigPath returns the path of the global config.json
func (s *Service) ConfigPath() string {
	return filepath.Join(s.judgeDir, "config.json")
}

// ResultsPath returns the path of the grader's results.json
func (s *Service) ResultsPath() string {
	return filepath.Join(s.judgeDir, "results.json")
}
