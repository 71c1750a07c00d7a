package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/api"
	"github.com/quarry/sparc/internal/config"
	"github.com/quarry/sparc/internal/coord"
	"github.com/quarry/sparc/internal/status"
	pgstore "github.com/quarry/sparc/internal/store"
	"github.com/quarry/sparc/internal/stream"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting SPARC coordination service...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/sparc.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	state := coord.NewState(coord.Options{
		LogCapacity: cfg.Coordination.LogCapacity,
		Logger:      logger,
	})

	// Durable archive is optional; the service runs memory-only without it.
	var archive *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without archive", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			archive = ps
			state.SetPersister(ps)
			restore(state, ps, logger)
		}
	}

	// Stream mirror is optional too.
	var mirror *stream.Stream
	if cfg.Database.Redis.URL != "" {
		st, stErr := stream.New(cfg.Database.Redis.URL, cfg.Coordination.Stream, logger)
		if stErr != nil {
			logger.Warn("Redis unavailable, running without stream mirror", zap.Error(stErr))
		} else {
			mirror = st
			state.SetMirror(st)
			logger.Info("Coordination stream mirror initialized", zap.String("stream", cfg.Coordination.Stream))
		}
	}

	var monitor *coord.Monitor
	if cfg.Coordination.StaleAfterMinutes > 0 {
		ttl := time.Duration(cfg.Coordination.StaleAfterMinutes) * time.Minute
		monitor = coord.NewMonitor(state, ttl, logger)
		monitor.Start()
	}

	agg := status.New(state, logger)
	handler := api.NewHandler(state, agg, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("SPARC coordination listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	if monitor != nil {
		monitor.Stop()
	}
	srv.Shutdown(context.Background())
	if mirror != nil {
		mirror.Close()
	}
	if archive != nil {
		archive.Close()
	}
}

// restore repopulates the in-memory state from the archive at boot.
func restore(state *coord.State, archive *pgstore.Store, logger *zap.Logger) {
	ctx := context.Background()
	workflows, err := archive.LoadWorkflows(ctx)
	if err != nil {
		logger.Warn("failed to load archived workflows", zap.Error(err))
	}
	tasks, err := archive.LoadTasks(ctx)
	if err != nil {
		logger.Warn("failed to load archived tasks", zap.Error(err))
	}
	agents, err := archive.LoadAgents(ctx)
	if err != nil {
		logger.Warn("failed to load archived agents", zap.Error(err))
	}
	state.Restore(workflows, tasks, agents)
	logger.Info("State restored from archive",
		zap.Int("workflows", len(workflows)),
		zap.Int("tasks", len(tasks)),
		zap.Int("agents", len(agents)))
}
