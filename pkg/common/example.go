package common

import "time"

// TrainingExample pairs the analysis context a recommendation was generated
// from with the recommendation itself and its realized outcomes. One example
// per recommendation with outcome data; tagged with the personality that
// produced it.
type TrainingExample struct {
	ReferenceDate       time.Time      `json:"backtest_date"`
	EconomyState        string         `json:"economy_state_analysis"`
	AssetClassRelations string         `json:"asset_class_relationship_analysis"`
	Personality         string         `json:"personality"`
	Recommendation      Recommendation `json:"recommendation"`
	Outcomes            Outcomes       `json:"outcomes"`
}
