package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/mcoot/judgeportal/internal/filex"
	"github.com/mcoot/judgeportal/internal/model"
)

const (
	// configFileName is the per-problem configuration file
	configFileName = "config.cfg"
	// subtestPrefix marks sub-test entries inside a problem directory
	subtestPrefix = "test"
)

// Service derives the test catalog, the user list and per-problem
// configuration from the judge directory
type Service struct {
	judgeDir string
	logger   *slog.Logger
}

// New creates a catalog Service rooted at judgeDir
func New(judgeDir string, logger *slog.Logger) *Service {
	return &Service{
		judgeDir: judgeDir,
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// ListTests returns every problem directory name
func (s *Service) ListTests(ctx context.Context) ([]string, error) {
	layout, err := s.Layout(ctx)
	if err != nil {
		return nil, err
	}
	return s.TestsIn(ctx, layout)
}

// ListUsers returns every workspace directory name
func (s *Service) ListUsers(ctx context.Context) ([]string, error) {
	layout, err := s.Layout(ctx)
	if err != nil {
		return nil, err
	}
	return s.UsersIn(ctx, layout)
}

// TestInfo resolves the sub-tests and configuration of a problem
func (s *Service) TestInfo(ctx context.Context, name string) (model.TestInfo, error) {
	layout, err := s.Layout(ctx)
	if err != nil {
		return model.TestInfo{}, err
	}
	return s.TestInfoIn(ctx, layout, name)
}

// TestsIn lists problems under an already resolved layout
func (s *Service) TestsIn(ctx context.Context, layout Layout) ([]string, error) {
	return filex.ListDirs(ctx, layout.TestsDir)
}

// UsersIn lists workspaces under an already resolved layout
func (s *Service) UsersIn(ctx context.Context, layout Layout) ([]string, error) {
	return filex.ListDirs(ctx, layout.UsersDir)
}

// FindTest matches name case-insensitively against the catalog and returns
// the directory name as it appears on disk
func (s *Service) FindTest(ctx context.Context, layout Layout, name string) (string, error) {
	tests, err := s.TestsIn(ctx, layout)
	if err != nil {
		return "", err
	}
	for _, t := range tests {
		if strings.EqualFold(t, name) {
			return t, nil
		}
	}
	return "", model.ErrProblemNotFound
}

// TestInfoIn resolves a problem under an already resolved layout. The
// sub-test list keeps directory order. When the problem has no config.cfg a
// default one is created first; concurrent first reads create it once.
func (s *Service) TestInfoIn(ctx context.Context, layout Layout, name string) (model.TestInfo, error) {
	if !validName(name) {
		return model.TestInfo{}, fmt.Errorf("%w: %q", model.ErrProblemNotFound, name)
	}

	dir := layout.ProblemDir(name)
	list, err := filex.ListPrefixed(ctx, dir, subtestPrefix)
	if err != nil {
		return model.TestInfo{}, err
	}

	cfg, err := s.readOrCreateConfig(ctx, filepath.Join(dir, configFileName))
	if err != nil {
		return model.TestInfo{}, err
	}

	return model.TestInfo{Test: name, List: list, Config: cfg}, nil
}

func (s *Service) readOrCreateConfig(ctx context.Context, path string) (model.TestConfig, error) {
	defaults, err := EncodeConfig(model.DefaultTestConfig())
	if err != nil {
		return model.TestConfig{}, err
	}

	created, err := filex.CreateIfAbsent(path, defaults)
	if err != nil {
		return model.TestConfig{}, err
	}
	if created {
		s.logger.Info("default problem config created", slog.String("path", path))
	}

	data, err := filex.ReadFile(ctx, path)
	if err != nil {
		return model.TestConfig{}, err
	}
	cfg, err := DecodeConfig(data)
	if err != nil {
		return model.TestConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// EncodeConfig renders a problem configuration as config.cfg content
func EncodeConfig(cfg model.TestConfig) ([]byte, error) {
	f := ini.Empty()
	sec := f.Section(ini.DefaultSection)

	pairs := [][2]string{
		{"checker", orLiteral(cfg.Checker, "null")},
		{"point_per_test", strconv.FormatFloat(cfg.PointPerTest, 'f', -1, 64)},
		{"icpc", strconv.FormatBool(cfg.ICPC)},
		{"time_limit", strconv.Itoa(cfg.TimeLimitMs)},
		{"memory_limit", strconv.Itoa(cfg.MemoryLimitMB)},
		{"input_file", orLiteral(cfg.InputFile, "false")},
		{"output_file", orLiteral(cfg.OutputFile, "false")},
		{"selected", strconv.FormatBool(cfg.Selected)},
	}
	for _, p := range pairs {
		if _, err := sec.NewKey(p[0], p[1]); err != nil {
			return nil, err
		}
	}
	extra := make([]string, 0, len(cfg.Extra))
	for k := range cfg.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if _, err := sec.NewKey(k, cfg.Extra[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeConfig parses config.cfg content. Missing or unparsable values take
// their defaults; unknown keys are kept in Extra.
func DecodeConfig(data []byte) (model.TestConfig, error) {
	f, err := ini.Load(data)
	if err != nil {
		return model.TestConfig{}, err
	}
	sec := f.Section(ini.DefaultSection)
	def := model.DefaultTestConfig()

	cfg := model.TestConfig{
		Checker:       unsetIfLiteral(sec.Key("checker").String()),
		PointPerTest:  sec.Key("point_per_test").MustFloat64(def.PointPerTest),
		ICPC:          sec.Key("icpc").MustBool(def.ICPC),
		TimeLimitMs:   sec.Key("time_limit").MustInt(def.TimeLimitMs),
		MemoryLimitMB: sec.Key("memory_limit").MustInt(def.MemoryLimitMB),
		InputFile:     unsetIfLiteral(sec.Key("input_file").String()),
		OutputFile:    unsetIfLiteral(sec.Key("output_file").String()),
		Selected:      sec.Key("selected").MustBool(def.Selected),
	}

	for _, key := range sec.Keys() {
		if knownKeys[key.Name()] {
			continue
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]string)
		}
		cfg.Extra[key.Name()] = key.String()
	}
	return cfg, nil
}

var knownKeys = map[string]bool{
	"checker":        true,
	"point_per_test": true,
	"icpc":           true,
	"time_limit":     true,
	"memory_limit":   true,
	"input_file":     true,
	"output_file":    true,
	"selected":       true,
}

func orLiteral(v, literal string) string {
	if v == "" {
		return literal
	}
	return v
}

// unsetIfLiteral maps the grader's "nothing" spellings to the empty string
func unsetIfLiteral(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "false", "none":
		return ""
	}
	return v
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
