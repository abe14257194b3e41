package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/cmd/foresight"
	"github.com/peter-kozarec/foresight/internal/dbg"
	"github.com/peter-kozarec/foresight/pkg/backtest"
	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/config"
	"github.com/peter-kozarec/foresight/pkg/data/duckdb"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	date := flag.String("date", "", "single reference date YYYY-MM-DD")
	dateStart := flag.String("date-start", "", "range start YYYY-MM-DD")
	dateEnd := flag.String("date-end", "", "range end YYYY-MM-DD")
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

	logger.Info(fmt.Sprintf("foresight backtest %s", foresight.Version))
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	single, start, end := cfg.Backtest.Date, cfg.Backtest.DateStart, cfg.Backtest.DateEnd
	if *date != "" || *dateStart != "" || *dateEnd != "" {
		single, start, end = *date, *dateStart, *dateEnd
	}
	dates, err := backtest.ReferenceDates(single, start, end)
	if err != nil {
		logger.Fatal("invalid reference dates", zap.Error(err))
	}

	var storeOpts []duckdb.Option
	if cfg.Warehouse.Benchmark != "" {
		storeOpts = append(storeOpts, duckdb.WithBenchmark(cfg.Warehouse.Benchmark, cfg.Warehouse.BenchmarkTable))
	}
	if len(cfg.Warehouse.ReturnTables) > 0 {
		storeOpts = append(storeOpts, duckdb.WithReturnTables(cfg.Warehouse.ReturnTables))
	}

	db := duckdb.New(cfg.Warehouse.Path, storeOpts...)
	if err := db.Connect(); err != nil {
		logger.Fatal("error opening warehouse", zap.Error(err))
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal("error preparing result schema", zap.Error(err))
	}

	key := common.ModelKey{
		Provider:    cfg.Model.Provider,
		ModelName:   cfg.Model.Name,
		Personality: cfg.Model.Personality,
	}

	evaluator := backtest.NewEvaluator(logger, db)
	runner := backtest.NewRunner(logger, evaluator, db, db, common.DefaultHorizons)

	report, err := runner.Run(ctx, dates, key)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("backtest interrupted")
			return
		}
		logger.Fatal("error during backtest", zap.Error(err))
	}
	report.Print(logger)
}
