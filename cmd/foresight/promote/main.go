package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/cmd/foresight"
	"github.com/peter-kozarec/foresight/internal/dbg"
	"github.com/peter-kozarec/foresight/pkg/config"
	"github.com/peter-kozarec/foresight/pkg/data/duckdb"
	"github.com/peter-kozarec/foresight/pkg/optimize"
	"github.com/peter-kozarec/foresight/pkg/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	moduleName := flag.String("module", "", "module to promote")
	version := flag.String("version", "", "version to promote")
	force := flag.Bool("force", false, "promote even below the improvement threshold")
	auto := flag.Bool("auto", false, "promote the best eligible version of every module")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := dbg.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info(fmt.Sprintf("foresight promote %s", foresight.Version))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db := duckdb.New(cfg.Warehouse.Path)
	if err := db.Connect(); err != nil {
		logger.Fatal("error opening warehouse", zap.Error(err))
	}
	defer db.Close()

	reg := registry.New(logger, db.Handle(), registry.WithThreshold(cfg.Optimization.PromotionThresholdPct))
	if err := reg.EnsureSchema(ctx); err != nil {
		logger.Fatal("error preparing registry schema", zap.Error(err))
	}

	if *auto {
		autoPromote(ctx, logger, reg)
		return
	}

	if *moduleName == "" || *version == "" {
		logger.Fatal("either -auto or both -module and -version are required")
	}
	promoteOne(ctx, logger, cfg, reg, *moduleName, *version, *force)
}

func promoteOne(ctx context.Context, logger *zap.Logger, cfg *config.Config,
	reg *registry.Registry, moduleName, version string, force bool) {

	candidate, err := reg.Get(ctx, moduleName, version)
	if err != nil {
		logger.Fatal("error loading candidate", zap.Error(err))
	}

	// The registry row is only trustworthy if the compiled state is still
	// on disk, otherwise a promoted version could not be served.
	artifacts := optimize.NewArtifactStore(cfg.Artifacts.Dir)
	if _, err := artifacts.Load(candidate.ModuleName, candidate.Version); err != nil {
		logger.Fatal("error loading artifact for candidate", zap.Error(err))
	}

	decision, err := reg.Promote(ctx, moduleName, version, force)
	if err != nil {
		logger.Fatal("error promoting version", zap.Error(err))
	}
	logDecision(logger, decision)
	if decision.Status == registry.StatusThresholdNotMet {
		os.Exit(1)
	}
}

func autoPromote(ctx context.Context, logger *zap.Logger, reg *registry.Registry) {
	decisions, err := reg.AutoPromote(ctx)
	if err != nil {
		logger.Fatal("error during auto promotion", zap.Error(err))
	}
	if len(decisions) == 0 {
		logger.Info("no versions eligible for promotion")
		return
	}
	for _, decision := range decisions {
		logDecision(logger, decision)
	}
}

func logDecision(logger *zap.Logger, d registry.Decision) {
	fields := []zap.Field{
		zap.String("module", d.ModuleName),
		zap.String("version", d.Version),
		zap.String("personality", d.Personality),
		zap.Float64("improvement_pct", d.ImprovementPct),
	}
	switch d.Status {
	case registry.StatusPromoted:
		logger.Info("version promoted", fields...)
	case registry.StatusAlreadyProduction:
		logger.Info("version already in production", fields...)
	case registry.StatusThresholdNotMet:
		logger.Warn("improvement below threshold, not promoted", fields...)
	}
}
