package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/cmd/foresight"
	"github.com/peter-kozarec/foresight/internal/dbg"
	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/config"
	"github.com/peter-kozarec/foresight/pkg/data/duckdb"
	"github.com/peter-kozarec/foresight/pkg/llm"
	"github.com/peter-kozarec/foresight/pkg/optimize"
	"github.com/peter-kozarec/foresight/pkg/registry"
)

var personalities = []string{"skeptical", "neutral", "bullish"}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	moduleName := flag.String("module", "macro_analysis", "registry module name")
	allPersonalities := flag.Bool("all-personalities", false, "optimize every personality, not just the configured one")
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

	logger.Info(fmt.Sprintf("foresight optimize %s", foresight.Version))
	defer logger.Info("done")

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

	artifacts := optimize.NewArtifactStore(cfg.Artifacts.Dir)

	limiter := llm.NewRateLimiter(cfg.LLM.TokensPerMinute)
	baseline := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.Model.Name, limiter)

	trainer := optimize.NewTrainer(logger, db, optimize.NewFewShot(0),
		optimize.WithMinExamples(cfg.Optimization.MinExamples))

	from, to, err := optimizationWindow(cfg)
	if err != nil {
		logger.Fatal("invalid optimization window", zap.Error(err))
	}

	targets := []string{cfg.Model.Personality}
	if *allPersonalities {
		targets = personalities
	}

	for _, personality := range targets {
		if err := runOne(ctx, logger, cfg, trainer, reg, artifacts, baseline, *moduleName, personality, from, to); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("optimization interrupted")
				return
			}
			logger.Error("optimization failed",
				zap.String("personality", personality), zap.Error(err))
		}
	}
}

func runOne(ctx context.Context, logger *zap.Logger, cfg *config.Config,
	trainer *optimize.Trainer, reg *registry.Registry, artifacts *optimize.ArtifactStore,
	baseline llm.Module, moduleName, personality string, from, to *time.Time) error {

	key := common.ModelKey{
		Provider:    cfg.Model.Provider,
		ModelName:   cfg.Model.Name,
		Personality: personality,
	}

	logger.Info("optimizing module",
		zap.String("module", moduleName), zap.String("personality", personality))

	examples, err := trainer.BuildTrainingSet(ctx, key, from, to)
	if err != nil {
		if errors.Is(err, optimize.ErrInsufficientData) {
			logger.Warn("skipping personality", zap.String("personality", personality), zap.Error(err))
			return nil
		}
		return err
	}

	result, err := trainer.Optimize(ctx, moduleName, key, baseline, examples)
	if err != nil {
		return err
	}

	path, err := artifacts.Save(optimize.Artifact{
		ModuleName:        result.ModuleName,
		Version:           result.Version,
		Personality:       result.Personality,
		ModelProvider:     cfg.Model.Provider,
		ModelName:         cfg.Model.Name,
		BaselineAccuracy:  result.BaselineAccuracy,
		OptimizedAccuracy: result.OptimizedAccuracy,
		ImprovementPct:    result.ImprovementPct,
		OptimizationDate:  time.Now().UTC(),
		Instructions:      result.Compiled.Instructions,
	})
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	recorded, err := reg.Record(ctx, common.ModelVersion{
		ModuleName:        result.ModuleName,
		Version:           result.Version,
		Personality:       result.Personality,
		OptimizationDate:  time.Now().UTC(),
		BaselineAccuracy:  result.BaselineAccuracy,
		OptimizedAccuracy: result.OptimizedAccuracy,
		ArtifactPath:      path,
	})
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	logger.Info("version recorded",
		zap.String("module", recorded.ModuleName),
		zap.String("version", recorded.Version),
		zap.String("personality", recorded.Personality),
		zap.Float64("improvement_pct", recorded.ImprovementPct),
		zap.String("artifact", path))
	return nil
}

func optimizationWindow(cfg *config.Config) (from, to *time.Time, err error) {
	parse := func(s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", s, err)
		}
		return &t, nil
	}
	if from, err = parse(cfg.Optimization.DateStart); err != nil {
		return nil, nil, err
	}
	if to, err = parse(cfg.Optimization.DateEnd); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
