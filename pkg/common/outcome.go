package common

// Horizon is a forward-looking window, in months, over which a recommendation
// is judged.
type Horizon int

const (
	Horizon1M Horizon = 1
	Horizon3M Horizon = 3
	Horizon6M Horizon = 6
)

// DefaultHorizons is the standard set evaluated for every recommendation.
var DefaultHorizons = []Horizon{Horizon1M, Horizon3M, Horizon6M}

// HorizonOutcome is the realized performance of one symbol over one forward
// horizon from one reference date. ActualReturn is nil when the warehouse has
// no usable row for the symbol at that date. BenchmarkReturn is never nil; a
// missing benchmark row reads as 0.0. Outperformance follows ActualReturn's
// nilness.
type HorizonOutcome struct {
	ActualReturn    *float64 `json:"actual_return"`
	BenchmarkReturn float64  `json:"benchmark_return"`
	Outperformance  *float64 `json:"outperformance"`
}

// Outcomes maps each evaluated horizon to its realized outcome.
type Outcomes map[Horizon]HorizonOutcome

// EvaluationResult is the verdict for one (recommendation, horizon) pair.
// Only horizons with a non-nil actual return produce a result.
type EvaluationResult struct {
	IsHit           bool    `json:"is_hit"`
	ActualReturn    float64 `json:"actual_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	Outperformance  float64 `json:"outperformance"`
}
