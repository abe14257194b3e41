package backtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/utility"
)

// Report accumulates summaries across the reference dates of one run and
// exposes cross-date aggregates. The aggregate is order independent: hit and
// miss counts sum, accuracies are recomputed from the sums, and average
// outperformance is the mean of the per-date means.
type Report struct {
	RunID    utility.RunID
	Model    common.ModelKey
	horizons []common.Horizon

	DatesProcessed       int
	TotalRecommendations int

	hits      map[common.Horizon]int
	misses    map[common.Horizon]int
	outpSum   map[common.Horizon]float64
	outpDates map[common.Horizon]int
}

func NewReport(runID utility.RunID, key common.ModelKey, horizons []common.Horizon) Report {
	return Report{
		RunID:     runID,
		Model:     key,
		horizons:  horizons,
		hits:      make(map[common.Horizon]int, len(horizons)),
		misses:    make(map[common.Horizon]int, len(horizons)),
		outpSum:   make(map[common.Horizon]float64, len(horizons)),
		outpDates: make(map[common.Horizon]int, len(horizons)),
	}
}

func (r *Report) Add(summary common.Summary) {
	r.DatesProcessed++
	r.TotalRecommendations += summary.TotalRecommendations
	for _, h := range r.horizons {
		stats := summary.Stats(h)
		r.hits[h] += stats.Hits
		r.misses[h] += stats.Misses
		// Dates that scored nothing at this horizon carry a zeroed mean;
		// letting them into the average would dilute it.
		if stats.Hits+stats.Misses > 0 {
			r.outpSum[h] += stats.AvgOutperformance
			r.outpDates[h]++
		}
	}
}

// Accuracy returns the cross-date hit rate for h, 0.0 when nothing scored.
func (r Report) Accuracy(h common.Horizon) float64 {
	total := r.hits[h] + r.misses[h]
	if total == 0 {
		return 0.0
	}
	return utility.Rescale4(float64(r.hits[h]) / float64(total))
}

// AvgOutperformance returns the mean of the per-date average outperformances
// for h, over the dates that scored at least one result at that horizon.
// 0.0 when none did.
func (r Report) AvgOutperformance(h common.Horizon) float64 {
	if r.outpDates[h] == 0 {
		return 0.0
	}
	return utility.Rescale4(r.outpSum[h] / float64(r.outpDates[h]))
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("backtest report",
		zap.Stringer("run_id", r.RunID),
		zap.String("model_provider", r.Model.Provider),
		zap.String("model_name", r.Model.ModelName),
		zap.String("personality", r.Model.Personality),
		zap.Int("dates_processed", r.DatesProcessed),
		zap.Int("total_recommendations", r.TotalRecommendations))

	for _, h := range r.horizons {
		logger.Info(fmt.Sprintf("horizon %dm", h),
			zap.Int("hits", r.hits[h]),
			zap.Int("misses", r.misses[h]),
			zap.Float64("accuracy", r.Accuracy(h)),
			zap.Float64("avg_outperformance", r.AvgOutperformance(h)))
	}
}
