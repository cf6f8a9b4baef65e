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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/api"
	"github.com/halcyard/botfarm/internal/config"
	"github.com/halcyard/botfarm/internal/content"
	"github.com/halcyard/botfarm/internal/cycle"
	"github.com/halcyard/botfarm/internal/decision"
	"github.com/halcyard/botfarm/internal/dedup"
	"github.com/halcyard/botfarm/internal/generate"
	"github.com/halcyard/botfarm/internal/interaction"
	"github.com/halcyard/botfarm/internal/provider"
	"github.com/halcyard/botfarm/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting botfarm...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/botfarm.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// PostgreSQL is the system of record; nothing works without it.
	st, err := store.New(context.Background(), cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	if err := st.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Redis backs the controller checkpoint and the shared dedup list. The
	// client reconnects on its own, so a failed ping is a warning only.
	redisOpts, err := redis.ParseURL(cfg.Database.Redis.URL)
	if err != nil {
		logger.Fatal("invalid redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.Error(err))
	}
	cancelPing()

	provRouter := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		p := provider.NewOpenAIProvider(provider.Config{
			ID:           pc.ID,
			Name:         pc.Name,
			Endpoint:     pc.Endpoint,
			APIKey:       pc.APIKey,
			DefaultModel: pc.DefaultModel,
			Timeout:      time.Duration(pc.TimeoutSecs) * time.Second,
			RatePerSec:   pc.RatePerSec,
		}, logger)
		provRouter.Register(pc.ID, p)
	}

	dedupEngine := dedup.NewEngine(st, rdb, cfg.Generation.DuplicateThreshold, logger)
	generator := generate.New(provRouter, dedupEngine, cfg.Generation.MaxAttempts, cfg.Generation.ProblemBias, nil, logger)
	decider := decision.NewEngine(nil, logger)
	contents := content.NewPostgres(st.Pool(), logger)

	orchestrator := interaction.New(contents, st, generator,
		time.Duration(cfg.Interaction.WindowSecs)*time.Second, nil, logger)

	runner := cycle.NewRunner(st, contents, decider, generator, orchestrator,
		cfg.Scheduler.Workers, cfg.Interaction.CrossChance, nil, logger)

	controller := cycle.NewController(runner, cycle.NewRedisCheckpoints(rdb), logger)
	if err := controller.Restore(context.Background()); err != nil {
		logger.Warn("controller restore failed, starting stopped", zap.Error(err))
	}

	handler := api.NewHandler(st, controller, runner, cfg.Scheduler.IntervalSecs, nil, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("botfarm listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down botfarm...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	// Halt the countdown without marking it stopped; the checkpoint lets the
	// next start resume mid-interval.
	controller.Shutdown()
	st.Close()
	rdb.Close()
}
