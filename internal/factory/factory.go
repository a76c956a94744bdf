package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/judgeportal/internal/config"
	"github.com/mcoot/judgeportal/internal/dependencies/clock"
	"github.com/mcoot/judgeportal/internal/dependencies/random"
	"github.com/mcoot/judgeportal/internal/services/accounts"
	"github.com/mcoot/judgeportal/internal/services/auth"
	"github.com/mcoot/judgeportal/internal/services/broadcast"
	"github.com/mcoot/judgeportal/internal/services/catalog"
	"github.com/mcoot/judgeportal/internal/services/submission"
	"github.com/mcoot/judgeportal/internal/storage"
	"github.com/mcoot/judgeportal/internal/storage/memory"
	redisstorage "github.com/mcoot/judgeportal/internal/storage/redis"
	"github.com/mcoot/judgeportal/internal/web/realtime"
)

// App contains all wired application components
type App struct {
	// Storage
	Sessions storage.SessionStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AccountService    *accounts.Service
	AuthService       *auth.Service
	CatalogService    *catalog.Service
	SubmissionService *submission.Service
	BroadcastLoop     *broadcast.Loop

	// Real-time fan-out
	Hub             *realtime.Hub
	RealtimeHandler *realtime.Handler

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// JudgeDir holds config.json, results.json and the default tests and users roots
	JudgeDir string
	// AccountsFile is the account store
	AccountsFile string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the session store ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Broadcast controls the loop timing; zero values take broadcast defaults
	Broadcast broadcast.Config
	// Messages are the submit replies; nil means config.DefaultMessages()
	Messages *config.Messages
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.SessionStore
	var closers []io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.SessionStoreMemory
	}

	switch storageType {
	case config.SessionStoreMemory:
		store = memory.New()
	case config.SessionStoreRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	app := newWithDependencies(cfg, store, clock.New(), random.New(), logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg Config, store storage.SessionStore, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	messages := config.DefaultMessages()
	if cfg.Messages != nil {
		messages = *cfg.Messages
	}
	broadcastCfg := cfg.Broadcast
	defaults := broadcast.DefaultConfig()
	if broadcastCfg.Interval == 0 {
		broadcastCfg.Interval = defaults.Interval
	}
	if broadcastCfg.MaxInFlight == 0 {
		broadcastCfg.MaxInFlight = defaults.MaxInFlight
	}
	if broadcastCfg.ConfigReaders == 0 {
		broadcastCfg.ConfigReaders = defaults.ConfigReaders
	}

	// Create services
	accountService := accounts.New(cfg.AccountsFile, logger)
	authService := auth.New(accountService, store, clk, rnd, logger)
	catalogService := catalog.New(cfg.JudgeDir, logger)
	submissionService := submission.New(catalogService, logger)
	hub := realtime.NewHub(logger)
	realtimeHandler := realtime.NewHandler(hub, submissionService, messages, logger)
	loop := broadcast.New(catalogService, hub, clk, broadcastCfg, logger)

	return &App{
		Sessions:          store,
		Clock:             clk,
		Random:            rnd,
		AccountService:    accountService,
		AuthService:       authService,
		CatalogService:    catalogService,
		SubmissionService: submissionService,
		BroadcastLoop:     loop,
		Hub:               hub,
		RealtimeHandler:   realtimeHandler,
		logger:            logger,
	}
}

// Run drives the hub and the broadcast loop until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.BroadcastLoop.Run(gctx)
	})
	return g.Wait()
}

// Close releases external connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
