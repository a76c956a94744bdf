package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/judgeportal/internal/api"
	"github.com/mcoot/judgeportal/internal/config"
	"github.com/mcoot/judgeportal/internal/factory"
	"github.com/mcoot/judgeportal/internal/services/broadcast"
	redisstorage "github.com/mcoot/judgeportal/internal/storage/redis"
	"github.com/mcoot/judgeportal/internal/web"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	messages, err := config.LoadMessages(cfg.MessagesFile)
	if err != nil {
		logger.Error("failed to load messages", slog.String("error", err.Error()))
		return err
	}

	// Build factory config
	factoryCfg := factory.Config{
		JudgeDir:     cfg.JudgeDir,
		AccountsFile: cfg.AccountsFile,
		Logger:       logger,
		StorageType:  cfg.SessionStore,
		Broadcast: broadcast.Config{
			Interval:    cfg.BroadcastInterval,
			TickTimeout: cfg.TickTimeout,
		},
		Messages: &messages,
	}
	if cfg.SessionStore == config.SessionStoreRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		SnapshotSource: app.BroadcastLoop,
		SessionCounter: app.Sessions,
		ClientCounter:  app.Hub,
	})

	webRouter := web.NewRouter(web.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Streamer:    app.RealtimeHandler,
		WebDir:      cfg.WebDir,
	})

	// Combine routers
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(mux, serverConfig, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return app.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.Shutdown(context.Background())
	})

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("judge_dir", cfg.JudgeDir),
		slog.String("session_store", cfg.SessionStore))

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}
