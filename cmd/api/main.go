package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/claritycoach/backend/internal/config"
	"github.com/claritycoach/backend/internal/handler"
	"github.com/claritycoach/backend/internal/logging"
	"github.com/claritycoach/backend/internal/service/ai"
	"github.com/claritycoach/backend/internal/service/coach"
	"github.com/claritycoach/backend/internal/service/snapshot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	var coachSvc *coach.Service
	if cfg.AI.Enabled() {
		completer, err := ai.NewCompleter(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("failed to initialize ai provider, chat endpoints disabled",
				zap.String("provider", cfg.AI.Provider),
				zap.Error(err))
		} else {
			coachSvc = coach.NewService(completer, cfg.AI.Model, cfg.AI.FallbackModel, logger)
			logger.Info("ai provider initialized",
				zap.String("provider", cfg.AI.Provider),
				zap.String("model", cfg.AI.Model),
				zap.String("fallbackModel", cfg.AI.FallbackModel),
				zap.Bool("stream", cfg.AI.StreamResponse))
		}
	} else {
		logger.Warn("ai credentials not configured, chat endpoints disabled",
			zap.String("provider", cfg.AI.Provider))
	}

	snapshots := snapshot.NewStore(cfg.Server.SnapshotLimit)

	router := handler.NewRouter(coachSvc, snapshots, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Streaming:      cfg.AI.StreamResponse,
	}, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("clarity coach backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
