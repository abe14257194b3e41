package backtest

import (
	"github.com/peter-kozarec/foresight/pkg/common"
)

// Score judges one recommendation against its realized outcomes. Horizons
// whose actual return is unknown are excluded from both the verdicts and the
// aggregate denominator; they are not misses. The aggregate score is
// hits / scored horizons, 0.0 when nothing could be scored.
func Score(rec common.Recommendation, outcomes common.Outcomes) (map[common.Horizon]common.EvaluationResult, float64) {
	results := make(map[common.Horizon]common.EvaluationResult, len(outcomes))

	hits := 0
	scored := 0
	for horizon, outcome := range outcomes {
		if outcome.ActualReturn == nil {
			continue
		}

		actual := *outcome.ActualReturn
		outperformance := actual - outcome.BenchmarkReturn

		var isHit bool
		switch rec.Direction {
		case common.DirectionOverweight:
			isHit = outperformance > 0
		case common.DirectionUnderweight:
			isHit = outperformance < 0
		}

		results[horizon] = common.EvaluationResult{
			IsHit:           isHit,
			ActualReturn:    actual,
			BenchmarkReturn: outcome.BenchmarkReturn,
			Outperformance:  outperformance,
		}

		if isHit {
			hits++
		}
		scored++
	}

	if scored == 0 {
		return results, 0.0
	}
	return results, float64(hits) / float64(scored)
}
