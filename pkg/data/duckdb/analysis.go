package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// LatestRecommendations returns the most recently stored recommendations text
// for the reference date and model identity, together with the personality
// recorded for it. common.ErrNotFound when the upstream analysis step has not
// run for that date.
func (d *DB) LatestRecommendations(ctx context.Context, referenceDate time.Time, key common.ModelKey) (string, string, error) {
	const query = `
	SELECT recommendations_content, personality
	FROM backtest_investment_recommendations
	WHERE backtest_date = ? AND model_provider = ? AND model_name = ? AND personality = ?
	ORDER BY analysis_timestamp DESC
	LIMIT 1`

	var content string
	var personality sql.NullString
	err := d.db.QueryRowContext(ctx, query, referenceDate, key.Provider, key.ModelName, key.Personality).
		Scan(&content, &personality)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("recommendations for %s (%s/%s): %w",
			referenceDate.Format("2006-01-02"), key.Provider, key.ModelName, common.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("query recommendations: %w", err)
	}
	return content, personality.String, nil
}

// LatestAnalysis returns the most recent analysis text of the given kind, or
// an empty string when none exists. Used for training-context assembly, where
// a missing upstream analysis degrades to empty context rather than failing.
func (d *DB) LatestAnalysis(ctx context.Context, table string, referenceDate time.Time, key common.ModelKey) (string, error) {
	query := fmt.Sprintf(`
	SELECT analysis_content
	FROM %s
	WHERE backtest_date = ? AND model_provider = ? AND model_name = ? AND personality = ?
	ORDER BY analysis_timestamp DESC
	LIMIT 1`, table)

	var content string
	err := d.db.QueryRowContext(ctx, query, referenceDate, key.Provider, key.ModelName, key.Personality).
		Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query %s: %w", table, err)
	}
	return content, nil
}

// EconomyState reads the stored economy-state analysis for the date.
func (d *DB) EconomyState(ctx context.Context, referenceDate time.Time, key common.ModelKey) (string, error) {
	return d.LatestAnalysis(ctx, "backtest_economy_state_analysis", referenceDate, key)
}

// AssetClassRelations reads the stored asset-class relationship analysis for
// the date.
func (d *DB) AssetClassRelations(ctx context.Context, referenceDate time.Time, key common.ModelKey) (string, error) {
	return d.LatestAnalysis(ctx, "backtest_asset_class_relationship_analysis", referenceDate, key)
}

// EvaluationDates lists the reference dates with persisted evaluation results
// for the model identity, newest first. Optional bounds filter the range.
func (d *DB) EvaluationDates(ctx context.Context, key common.ModelKey, from, to *time.Time) ([]time.Time, error) {
	query := `
	SELECT backtest_date
	FROM backtest_evaluation_results
	WHERE model_provider = ? AND model_name = ? AND personality = ?`
	args := []any{key.Provider, key.ModelName, key.Personality}

	if from != nil {
		query += " AND backtest_date >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND backtest_date <= ?"
		args = append(args, *to)
	}
	query += " ORDER BY backtest_date DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluation dates: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var dates []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan evaluation date: %w", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return dates, nil
}
