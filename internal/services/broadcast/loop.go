package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/judgeportal/internal/dependencies/clock"
	"github.com/mcoot/judgeportal/internal/filex"
	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/catalog"
)

// ErrTickBusy is returned when a tick is due while the maximum number of
// ticks are still running
var ErrTickBusy = errors.New("too many ticks in flight")

// Source is the on-disk state a tick is derived from
type Source interface {
	Layout(ctx context.Context) (catalog.Layout, error)
	TestsIn(ctx context.Context, layout catalog.Layout) ([]string, error)
	UsersIn(ctx context.Context, layout catalog.Layout) ([]string, error)
	TestInfoIn(ctx context.Context, layout catalog.Layout, name string) (model.TestInfo, error)
	ResultsPath() string
}

// Publisher receives every snapshot the loop produces, in sequence order
type Publisher interface {
	Publish(snapshot *model.Snapshot)
}

// Config controls the loop's timing
type Config struct {
	// Interval is the tick period
	Interval time.Duration
	// TickTimeout bounds a single tick; zero means Interval
	TickTimeout time.Duration
	// MaxInFlight bounds concurrently running ticks
	MaxInFlight int
	// ConfigReaders bounds concurrent per-problem config reads within a tick
	ConfigReaders int
}

// DefaultConfig returns a one second loop
func DefaultConfig() Config {
	return Config{
		Interval:      time.Second,
		MaxInFlight:   2,
		ConfigReaders: 8,
	}
}

// Loop periodically rebuilds the world snapshot from disk and hands it to
// the publisher. A failed tick is logged and skipped; the loop keeps going.
type Loop struct {
	source    Source
	publisher Publisher
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	seq      atomic.Uint64
	inFlight chan struct{}

	mu     sync.RWMutex
	latest *model.Snapshot
}

// New creates a new Loop
func New(source Source, publisher Publisher, clk clock.Clock, cfg Config, logger *slog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = cfg.Interval
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if cfg.ConfigReaders <= 0 {
		cfg.ConfigReaders = 1
	}
	return &Loop{
		source:    source,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "broadcast")),
		inFlight:  make(chan struct{}, cfg.MaxInFlight),
	}
}

// Run ticks until ctx is cancelled, then waits for running ticks to finish
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	l.logger.Info("broadcast loop started",
		slog.Duration("interval", l.cfg.Interval),
		slog.Duration("tick_timeout", l.cfg.TickTimeout))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("broadcast loop stopped")
			return nil
		case <-ticker.C():
			select {
			case l.inFlight <- struct{}{}:
			default:
				l.logger.Warn("tick skipped", slog.Any("error", ErrTickBusy))
				continue
			}
			seq := l.seq.Add(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-l.inFlight }()
				if _, err := l.tick(ctx, seq); err != nil {
					l.logger.Error("tick failed",
						slog.Uint64("seq", seq),
						slog.Any("error", err))
				}
			}()
		}
	}
}

// RunOnce performs a single tick immediately and returns its snapshot
func (l *Loop) RunOnce(ctx context.Context) (*model.Snapshot, error) {
	return l.tick(ctx, l.seq.Add(1))
}

// Latest returns the most recent published snapshot, or nil before the
// first successful tick
func (l *Loop) Latest() *model.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest
}

func (l *Loop) tick(ctx context.Context, seq uint64) (*model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.TickTimeout)
	defer cancel()

	start := l.clock.Now()
	snapshot, err := l.collectWithin(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Seq = seq

	if !l.publish(snapshot) {
		l.logger.Debug("stale tick dropped", slog.Uint64("seq", seq))
		return snapshot, nil
	}
	l.logger.Debug("tick published",
		slog.Uint64("seq", seq),
		slog.Int("tests", len(snapshot.Tests)),
		slog.Int("users", len(snapshot.Users)),
		slog.Duration("duration", l.clock.Now().Sub(start)))
	return snapshot, nil
}

// publish records snapshot as the latest and forwards it, unless a newer
// snapshot was already published
func (l *Loop) publish(snapshot *model.Snapshot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.latest != nil && l.latest.Seq >= snapshot.Seq {
		return false
	}
	l.latest = snapshot
	l.publisher.Publish(snapshot)
	return true
}

type collected struct {
	snapshot *model.Snapshot
	err      error
}

// collectWithin returns when collect does or when ctx is done, whichever
// comes first. An abandoned collect finishes in the background and its
// result is discarded.
func (l *Loop) collectWithin(ctx context.Context) (*model.Snapshot, error) {
	ch := make(chan collected, 1)
	go func() {
		snapshot, err := l.collect(ctx)
		ch <- collected{snapshot: snapshot, err: err}
	}()

	select {
	case res := <-ch:
		return res.snapshot, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tick abandoned: %w", ctx.Err())
	}
}

// collect reads results, tests, users and every problem's info. Nothing is
// returned unless all of them were read.
func (l *Loop) collect(ctx context.Context) (*model.Snapshot, error) {
	layout, err := l.source.Layout(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &model.Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := l.readResults(gctx)
		snapshot.Results = results
		return err
	})
	g.Go(func() error {
		users, err := l.source.UsersIn(gctx, layout)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		snapshot.Users = users
		return nil
	})
	g.Go(func() error {
		tests, err := l.source.TestsIn(gctx, layout)
		if err != nil {
			return fmt.Errorf("list tests: %w", err)
		}
		configs, err := l.readConfigs(gctx, layout, tests)
		if err != nil {
			return err
		}
		snapshot.Tests = tests
		snapshot.Configs = configs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (l *Loop) readResults(ctx context.Context) (model.Results, error) {
	path := l.source.ResultsPath()
	data, err := filex.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var results model.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if results == nil {
		results = model.Results{}
	}
	return results, nil
}

func (l *Loop) readConfigs(ctx context.Context, layout catalog.Layout, tests []string) ([]model.TestInfo, error) {
	configs := make([]model.TestInfo, len(tests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.ConfigReaders)
	for i, name := range tests {
		g.Go(func() error {
			info, err := l.source.TestInfoIn(gctx, layout, name)
			if err != nil {
				return fmt.Errorf("test info %s: %w", name, err)
			}
			configs[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return configs, nil
}
