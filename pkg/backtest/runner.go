package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/utility"
)

// AnalysisSource reads stored analysis text out of the warehouse. The latest
// row wins when a date was analyzed more than once. A missing row is
// common.ErrNotFound.
type AnalysisSource interface {
	LatestRecommendations(ctx context.Context, referenceDate time.Time, key common.ModelKey) (content, personality string, err error)
}

// ResultSink appends finished summaries to the external results store.
type ResultSink interface {
	AppendSummary(ctx context.Context, summary common.Summary) error
}

// Runner drives one backtest batch: for every reference date it loads the
// stored analysis, evaluates it, and persists the summary. Dates are
// processed sequentially; a date without stored analysis is skipped with a
// warning rather than failing the batch.
type Runner struct {
	logger    *zap.Logger
	evaluator *Evaluator
	analyses  AnalysisSource
	results   ResultSink
	horizons  []common.Horizon
}

func NewRunner(logger *zap.Logger, evaluator *Evaluator, analyses AnalysisSource, results ResultSink, horizons []common.Horizon) *Runner {
	if len(horizons) == 0 {
		horizons = common.DefaultHorizons
	}
	return &Runner{
		logger:    logger,
		evaluator: evaluator,
		analyses:  analyses,
		results:   results,
		horizons:  horizons,
	}
}

func (r *Runner) Run(ctx context.Context, dates []time.Time, key common.ModelKey) (Report, error) {
	runID := utility.NewRunID()
	r.logger.Info("starting backtest run",
		zap.Stringer("run_id", runID),
		zap.Int("dates", len(dates)),
		zap.String("model_provider", key.Provider),
		zap.String("model_name", key.ModelName),
		zap.String("personality", key.Personality))

	report := NewReport(runID, key, r.horizons)

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		r.logger.Info("processing reference date",
			zap.Time("reference_date", date),
			zap.Int("index", i+1),
			zap.Int("total", len(dates)))

		content, personality, err := r.analyses.LatestRecommendations(ctx, date, key)
		if errors.Is(err, common.ErrNotFound) {
			r.logger.Warn("no stored recommendations for date, skipping",
				zap.Time("reference_date", date),
				zap.String("model_provider", key.Provider),
				zap.String("model_name", key.ModelName))
			continue
		}
		if err != nil {
			return report, fmt.Errorf("load recommendations for %s: %w", date.Format(dateLayout), err)
		}

		// Personality recorded alongside the stored text wins over the
		// configured one.
		dateKey := key
		if personality != "" {
			dateKey.Personality = personality
		}

		summary, err := r.evaluator.Evaluate(ctx, content, date, dateKey, r.horizons)
		if err != nil {
			return report, fmt.Errorf("evaluate %s: %w", date.Format(dateLayout), err)
		}
		summary.RunID = runID

		if err := r.results.AppendSummary(ctx, summary); err != nil {
			return report, fmt.Errorf("append summary for %s: %w", date.Format(dateLayout), err)
		}
		report.Add(summary)
	}

	return report, nil
}
