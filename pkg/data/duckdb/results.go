package duckdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// AppendSummary writes one summary as a flat row. Per-symbol details are
// serialized as JSON for downstream dashboards; writes are immediately
// visible to reads within the same run.
func (d *DB) AppendSummary(ctx context.Context, summary common.Summary) error {
	details, err := json.Marshal(summary.Details)
	if err != nil {
		return fmt.Errorf("marshal evaluation details: %w", err)
	}

	const query = `
	INSERT INTO backtest_evaluation_results (
		backtest_date, model_provider, model_name, personality,
		run_id, evaluation_timestamp, total_recommendations,
		hits_1m, misses_1m, accuracy_1m,
		hits_3m, misses_3m, accuracy_3m,
		hits_6m, misses_6m, accuracy_6m,
		avg_outperformance_1m, avg_outperformance_3m, avg_outperformance_6m,
		evaluation_details
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s1 := summary.Stats(common.Horizon1M)
	s3 := summary.Stats(common.Horizon3M)
	s6 := summary.Stats(common.Horizon6M)

	_, err = d.db.ExecContext(ctx, query,
		summary.ReferenceDate, summary.Model.Provider, summary.Model.ModelName, summary.Model.Personality,
		summary.RunID.String(), summary.EvaluatedAt, summary.TotalRecommendations,
		s1.Hits, s1.Misses, s1.Accuracy,
		s3.Hits, s3.Misses, s3.Accuracy,
		s6.Hits, s6.Misses, s6.Accuracy,
		s1.AvgOutperformance, s3.AvgOutperformance, s6.AvgOutperformance,
		string(details),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation result: %w", err)
	}
	return nil
}
