package registry

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
)

type Status string

const (
	// StatusPromoted marks a successful promotion.
	StatusPromoted Status = "promoted"

	// StatusThresholdNotMet marks a declined promotion. Declines are a
	// normal, frequent outcome, not an error.
	StatusThresholdNotMet Status = "threshold_not_met"

	// StatusAlreadyProduction marks a candidate that is already live.
	StatusAlreadyProduction Status = "already_production"
)

// Decision is the outcome of a promotion attempt, carrying the measured
// improvement for visibility either way.
type Decision struct {
	ModuleName     string
	Version        string
	Personality    string
	Status         Status
	ImprovementPct float64
}

// Promote flips the target version to production. Unless forced, the
// version's improvement must meet the threshold; otherwise the decision is
// declined with StatusThresholdNotMet and nothing is mutated. On success the
// unset-all/set-one sequence runs inside a single transaction, so no reader
// observes zero or multiple production versions of the module.
func (r *Registry) Promote(ctx context.Context, moduleName, version string, force bool) (Decision, error) {
	v, err := r.Get(ctx, moduleName, version)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		ModuleName:     v.ModuleName,
		Version:        v.Version,
		Personality:    v.Personality,
		ImprovementPct: v.ImprovementPct,
	}

	if !force && v.ImprovementPct < r.threshold {
		decision.Status = StatusThresholdNotMet
		r.logger.Info("promotion declined",
			zap.String("module_name", moduleName),
			zap.String("version", version),
			zap.Float64("improvement_pct", v.ImprovementPct),
			zap.Float64("threshold_pct", r.threshold))
		return decision, nil
	}

	if err := r.flipProduction(ctx, moduleName, version); err != nil {
		return Decision{}, err
	}

	decision.Status = StatusPromoted
	r.logger.Info("promoted model version to production",
		zap.String("module_name", moduleName),
		zap.String("version", version),
		zap.Float64("improvement_pct", v.ImprovementPct))
	return decision, nil
}

// AutoPromote promotes the highest-accuracy eligible candidate of every
// module that has one. Candidates already in production are reported, not
// re-promoted.
func (r *Registry) AutoPromote(ctx context.Context) ([]Decision, error) {
	const modulesQuery = `
	SELECT DISTINCT module_name
	FROM model_versions
	WHERE optimized_accuracy IS NOT NULL AND improvement_pct >= ?
	ORDER BY module_name`

	rows, err := r.db.QueryContext(ctx, modulesQuery, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("query eligible modules: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var modules []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan module name: %w", err)
		}
		modules = append(modules, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	var decisions []Decision
	for _, moduleName := range modules {
		best, err := r.bestCandidate(ctx, moduleName)
		if err != nil {
			return decisions, err
		}

		decision := Decision{
			ModuleName:     best.ModuleName,
			Version:        best.Version,
			Personality:    best.Personality,
			ImprovementPct: best.ImprovementPct,
		}

		if best.IsProduction {
			decision.Status = StatusAlreadyProduction
			decisions = append(decisions, decision)
			continue
		}

		if err := r.flipProduction(ctx, best.ModuleName, best.Version); err != nil {
			return decisions, err
		}
		decision.Status = StatusPromoted
		r.logger.Info("auto-promoted model version",
			zap.String("module_name", best.ModuleName),
			zap.String("version", best.Version),
			zap.Float64("optimized_accuracy", best.OptimizedAccuracy),
			zap.Float64("improvement_pct", best.ImprovementPct))
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

func (r *Registry) bestCandidate(ctx context.Context, moduleName string) (common.ModelVersion, error) {
	const query = `
	SELECT module_name, version, personality, optimization_date,
	       baseline_accuracy, optimized_accuracy, improvement_pct,
	       is_production, artifact_path
	FROM model_versions
	WHERE module_name = ? AND optimized_accuracy IS NOT NULL AND improvement_pct >= ?
	ORDER BY optimized_accuracy DESC, improvement_pct DESC
	LIMIT 1`

	return r.scanVersion(r.db.QueryRowContext(ctx, query, moduleName, r.threshold),
		fmt.Sprintf("best candidate of %s", moduleName))
}

// flipProduction applies the unset-all-then-set-one sequence as one
// transaction.
func (r *Registry) flipProduction(ctx context.Context, moduleName, version string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promotion: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET is_production = FALSE WHERE module_name = ?`,
		moduleName); err != nil {
		return fmt.Errorf("unset production flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET is_production = TRUE WHERE module_name = ? AND version = ?`,
		moduleName, version); err != nil {
		return fmt.Errorf("set production flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion: %w", err)
	}
	return nil
}
