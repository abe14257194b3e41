package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// DefaultPromotionThresholdPct is the minimum relative accuracy improvement a
// candidate needs before promotion is allowed without force.
const DefaultPromotionThresholdPct = 5.0

// Registry stores trained model versions and gates which one is live.
// Versions are only ever appended and superseded; at most one version per
// module carries the production flag, enforced by promoting inside a single
// transaction.
type Registry struct {
	logger    *zap.Logger
	db        *sql.DB
	threshold float64
}

type Option func(*Registry)

// WithThreshold overrides the promotion threshold, in percent.
func WithThreshold(pct float64) Option {
	return func(r *Registry) {
		r.threshold = pct
	}
}

func New(logger *zap.Logger, db *sql.DB, opts ...Option) *Registry {
	r := &Registry{
		logger:    logger,
		db:        db,
		threshold: DefaultPromotionThresholdPct,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureSchema creates the version table if it does not exist.
func (r *Registry) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS model_versions (
		module_name        VARCHAR NOT NULL,
		version            VARCHAR NOT NULL,
		personality        VARCHAR NOT NULL,
		optimization_date  TIMESTAMP NOT NULL,
		baseline_accuracy  DOUBLE,
		optimized_accuracy DOUBLE,
		improvement_pct    DOUBLE,
		is_production      BOOLEAN DEFAULT FALSE,
		artifact_path      VARCHAR NOT NULL,
		metadata           JSON,
		created_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (module_name, version, personality)
	)`

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create model_versions: %w", err)
	}
	return nil
}

// Record appends one candidate version. The improvement percentage is derived
// from the accuracies, never trusted from the caller.
func (r *Registry) Record(ctx context.Context, v common.ModelVersion) (common.ModelVersion, error) {
	v.ImprovementPct = common.Improvement(v.BaselineAccuracy, v.OptimizedAccuracy)
	v.IsProduction = false

	const query = `
	INSERT INTO model_versions (
		module_name, version, personality, optimization_date,
		baseline_accuracy, optimized_accuracy, improvement_pct,
		is_production, artifact_path, metadata
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var metadata any
	if v.Metadata != "" {
		metadata = v.Metadata
	}
	_, err := r.db.ExecContext(ctx, query,
		v.ModuleName, v.Version, v.Personality, v.OptimizationDate,
		v.BaselineAccuracy, v.OptimizedAccuracy, v.ImprovementPct,
		v.IsProduction, v.ArtifactPath, metadata,
	)
	if err != nil {
		return common.ModelVersion{}, fmt.Errorf("insert model version: %w", err)
	}

	r.logger.Info("recorded model version",
		zap.String("module_name", v.ModuleName),
		zap.String("version", v.Version),
		zap.String("personality", v.Personality),
		zap.Float64("baseline_accuracy", v.BaselineAccuracy),
		zap.Float64("optimized_accuracy", v.OptimizedAccuracy),
		zap.Float64("improvement_pct", v.ImprovementPct))
	return v, nil
}

// Get loads one version. common.ErrNotFound when it was never recorded.
func (r *Registry) Get(ctx context.Context, moduleName, version string) (common.ModelVersion, error) {
	const query = `
	SELECT module_name, version, personality, optimization_date,
	       baseline_accuracy, optimized_accuracy, improvement_pct,
	       is_production, artifact_path
	FROM model_versions
	WHERE module_name = ? AND version = ?
	LIMIT 1`

	return r.scanVersion(r.db.QueryRowContext(ctx, query, moduleName, version),
		fmt.Sprintf("model version %s v%s", moduleName, version))
}

// ProductionVersion returns the production version of the module with the
// highest optimized accuracy, optionally filtered by personality.
// common.ErrNotFound when nothing has been promoted.
func (r *Registry) ProductionVersion(ctx context.Context, moduleName, personality string) (common.ModelVersion, error) {
	query := `
	SELECT module_name, version, personality, optimization_date,
	       baseline_accuracy, optimized_accuracy, improvement_pct,
	       is_production, artifact_path
	FROM model_versions
	WHERE module_name = ? AND is_production`
	args := []any{moduleName}

	if personality != "" {
		query += " AND personality = ?"
		args = append(args, personality)
	}
	query += " ORDER BY optimized_accuracy DESC LIMIT 1"

	return r.scanVersion(r.db.QueryRowContext(ctx, query, args...),
		fmt.Sprintf("production version of %s", moduleName))
}

func (r *Registry) scanVersion(row *sql.Row, what string) (common.ModelVersion, error) {
	var v common.ModelVersion
	var baseline, optimized, improvement sql.NullFloat64
	err := row.Scan(&v.ModuleName, &v.Version, &v.Personality, &v.OptimizationDate,
		&baseline, &optimized, &improvement, &v.IsProduction, &v.ArtifactPath)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ModelVersion{}, fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	if err != nil {
		return common.ModelVersion{}, fmt.Errorf("scan %s: %w", what, err)
	}
	v.BaselineAccuracy = baseline.Float64
	v.OptimizedAccuracy = optimized.Float64
	v.ImprovementPct = improvement.Float64
	return v, nil
}
