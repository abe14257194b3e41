package common

import "time"

// ModelVersion is one candidate trained module held by the registry. Versions
// are never deleted, only superseded; at most one version per module carries
// IsProduction.
type ModelVersion struct {
	ModuleName        string    `json:"module_name"`
	Version           string    `json:"version"`
	Personality       string    `json:"personality"`
	OptimizationDate  time.Time `json:"optimization_date"`
	BaselineAccuracy  float64   `json:"baseline_accuracy"`
	OptimizedAccuracy float64   `json:"optimized_accuracy"`
	ImprovementPct    float64   `json:"improvement_pct"`
	IsProduction      bool      `json:"is_production"`
	ArtifactPath      string    `json:"artifact_path"`
	Metadata          string    `json:"metadata,omitempty"`
}

// Improvement computes the relative accuracy gain in percent. A zero baseline
// yields 0.0 rather than a division error.
func Improvement(baseline, optimized float64) float64 {
	if baseline == 0 {
		return 0.0
	}
	return (optimized - baseline) / baseline * 100
}
