package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/extract"
	"github.com/peter-kozarec/foresight/pkg/utility"
)

// ReturnSource supplies realized forward returns for a set of symbols from a
// reference date. Implemented by the duckdb warehouse; faked in tests.
type ReturnSource interface {
	ForwardReturns(ctx context.Context, symbols []string, referenceDate time.Time, horizons []common.Horizon) (map[string]common.Outcomes, error)
}

// ExtractFunc parses analysis text into recommendations. Swappable so a
// structured-output contract can replace the regex heuristics without
// touching scoring.
type ExtractFunc func(text string) []common.Recommendation

type Evaluator struct {
	logger  *zap.Logger
	returns ReturnSource
	extract ExtractFunc
}

func NewEvaluator(logger *zap.Logger, returns ReturnSource) *Evaluator {
	return &Evaluator{
		logger:  logger,
		returns: returns,
		extract: extract.Recommendations,
	}
}

// WithExtract replaces the default extractor.
func (e *Evaluator) WithExtract(fn ExtractFunc) *Evaluator {
	e.extract = fn
	return e
}

// Evaluate extracts recommendations from one stored analysis text, joins them
// against realized returns, scores each, and aggregates into a Summary.
// Text without recommendations produces a zeroed summary, not an error; the
// condition is logged as a warning.
func (e *Evaluator) Evaluate(ctx context.Context, text string, referenceDate time.Time, key common.ModelKey, horizons []common.Horizon) (common.Summary, error) {
	if len(horizons) == 0 {
		horizons = common.DefaultHorizons
	}

	summary := common.Summary{
		ReferenceDate: referenceDate,
		Model:         key,
		EvaluatedAt:   time.Now().UTC(),
		Horizons:      make(map[common.Horizon]common.HorizonStats, len(horizons)),
	}
	for _, h := range horizons {
		summary.Horizons[h] = common.HorizonStats{}
	}

	recs := e.extract(text)
	summary.TotalRecommendations = len(recs)
	if len(recs) == 0 {
		e.logger.Warn("no recommendations found in analysis text",
			zap.Time("reference_date", referenceDate),
			zap.String("model_provider", key.Provider),
			zap.String("model_name", key.ModelName))
		return summary, nil
	}

	symbols := make([]string, 0, len(recs))
	for _, rec := range recs {
		symbols = append(symbols, rec.Symbol)
	}

	returns, err := e.returns.ForwardReturns(ctx, symbols, referenceDate, horizons)
	if err != nil {
		return common.Summary{}, fmt.Errorf("forward returns lookup: %w", err)
	}

	hits := make(map[common.Horizon]int, len(horizons))
	misses := make(map[common.Horizon]int, len(horizons))
	outperformances := make(map[common.Horizon][]float64, len(horizons))

	for _, rec := range recs {
		outcomes, ok := returns[rec.Symbol]
		if !ok {
			e.logger.Warn("no return data for symbol", zap.String("symbol", rec.Symbol))
			continue
		}

		results, score := Score(rec, outcomes)
		summary.Details = append(summary.Details, common.SymbolEvaluation{
			Symbol:    rec.Symbol,
			Direction: rec.Direction,
			Score:     score,
			Results:   results,
		})

		for _, h := range horizons {
			result, ok := results[h]
			if !ok {
				continue
			}
			if result.IsHit {
				hits[h]++
			} else {
				misses[h]++
			}
			outperformances[h] = append(outperformances[h], result.Outperformance)
		}
	}

	for _, h := range horizons {
		summary.Horizons[h] = horizonStats(hits[h], misses[h], outperformances[h])
	}
	return summary, nil
}

func horizonStats(hits, misses int, outperformances []float64) common.HorizonStats {
	stats := common.HorizonStats{Hits: hits, Misses: misses}

	if total := hits + misses; total > 0 {
		stats.Accuracy = utility.Rescale4(float64(hits) / float64(total))
	}
	if len(outperformances) > 0 {
		var sum float64
		for _, v := range outperformances {
			sum += v
		}
		stats.AvgOutperformance = utility.Rescale4(sum / float64(len(outperformances)))
	}
	return stats
}
