package common

import (
	"time"

	"github.com/peter-kozarec/foresight/pkg/utility"
)

// ModelKey identifies one analysis configuration: which provider and model
// produced the stored text, under which analytical personality.
type ModelKey struct {
	Provider    string `json:"model_provider"`
	ModelName   string `json:"model_name"`
	Personality string `json:"personality"`
}

// SymbolEvaluation is the scored outcome of one recommendation, kept for the
// persisted evaluation-details payload and for training-set assembly.
type SymbolEvaluation struct {
	Symbol    string                       `json:"symbol"`
	Direction Direction                    `json:"direction"`
	Score     float64                      `json:"score"`
	Results   map[Horizon]EvaluationResult `json:"period_results"`
}

// HorizonStats is the hit/miss tally for one horizon across a whole run.
type HorizonStats struct {
	Hits              int     `json:"hits"`
	Misses            int     `json:"misses"`
	Accuracy          float64 `json:"accuracy"`
	AvgOutperformance float64 `json:"avg_outperformance"`
}

// Summary aggregates all recommendations evaluated for one reference date and
// model identity. Immutable after creation; appended to the results table.
type Summary struct {
	ReferenceDate        time.Time                `json:"backtest_date"`
	Model                ModelKey                 `json:"model"`
	RunID                utility.RunID            `json:"run_id"`
	EvaluatedAt          time.Time                `json:"evaluation_timestamp"`
	TotalRecommendations int                      `json:"total_recommendations"`
	Horizons             map[Horizon]HorizonStats `json:"horizons"`
	Details              []SymbolEvaluation       `json:"evaluation_details"`
}

// Stats returns the tally for h, zero-valued when the horizon was not part of
// the run.
func (s Summary) Stats(h Horizon) HorizonStats {
	return s.Horizons[h]
}
