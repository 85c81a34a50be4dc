package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devrev/scoredb/internal/config"
	"github.com/devrev/scoredb/internal/engine"
	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/model"
	"github.com/devrev/scoredb/internal/server"
	"github.com/devrev/scoredb/internal/service"
	"github.com/devrev/scoredb/internal/store"
	"github.com/devrev/scoredb/internal/util/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("protocol", cfg.Engine.Protocol),
		zap.Int("actors", cfg.Simulation.Actors),
		zap.Int("seed_players", len(cfg.Seed)))

	// Build the engine
	policy, err := engine.NewConflictPolicy(cfg.Protocol())
	if err != nil {
		logger.Fatal("Failed to build conflict policy", zap.Error(err))
	}

	m := metrics.NewMetrics(cfg.Engine.Protocol, prometheus.DefaultRegisterer)
	seq := store.NewGlobalSequence(0)
	st := store.NewVersionedStore(seq, logger)
	manager := engine.NewTransactionManager(st, policy, m, logger)
	retry := engine.NewRetryScheduler(manager, &engine.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}, m, logger)

	leaderboard := service.NewLeaderboardService(manager, retry, st, m, logger)

	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:       "submissions",
		MaxWorkers: cfg.Simulation.Actors,
		QueueSize:  cfg.Simulation.QueueSize,
		Logger:     logger,
	})
	defer pool.Stop(5 * time.Second)

	simulator := service.NewSimulatorService(leaderboard, pool, logger)

	// Start metrics server if enabled
	if cfg.Metrics.Enabled {
		metricsServer := server.NewMetricsServer(
			&server.MetricsServerConfig{Port: cfg.Metrics.Port},
			m, st, logger,
		)
		if err := metricsServer.Start(); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		} else {
			defer metricsServer.Stop()
		}
	}

	// Cancel the workload on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Seed the initial leaderboard
	players := make([]model.PlayerScore, 0, len(cfg.Seed))
	for _, p := range cfg.Seed {
		players = append(players, model.PlayerScore{Player: model.Key(p.Player), Score: p.Score})
	}
	if err := leaderboard.SeedPlayers(ctx, players); err != nil {
		logger.Fatal("Failed to seed leaderboard", zap.Error(err))
	}

	// Run the concurrent submission workload
	keys := make([]model.Key, 0, len(players))
	for _, p := range players {
		keys = append(keys, p.Player)
	}
	workload := service.BuildWorkload(
		keys,
		cfg.Simulation.Actors,
		cfg.Simulation.SubmissionsPerActor,
		cfg.Simulation.MaxDelta,
		cfg.Simulation.ThinkTime,
	)

	report, err := simulator.Run(ctx, workload)
	if err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}

	printRanking(leaderboard, report, cfg.Engine.Protocol)
}

// loadConfig reads the config file, falling back to defaults if it is absent
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

// initLogger initializes the zap logger from config
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// printRanking writes the final leaderboard to stdout
func printRanking(leaderboard *service.LeaderboardService, report *service.SimulationReport, protocol string) {
	fmt.Printf("\nFinal leaderboard (%s): %d/%d submissions applied, %d exhausted, %d failed in %v\n",
		protocol, report.Succeeded, report.Submitted, report.Exhausted, report.Failed, report.Duration)

	for _, row := range leaderboard.Ranking() {
		fmt.Printf("  %2d. %-12s %6d\n", row.Rank, row.Player, row.Score)
	}
}
