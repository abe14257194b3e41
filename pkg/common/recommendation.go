package common

type Direction string

const (
	DirectionOverweight  Direction = "OVERWEIGHT"
	DirectionUnderweight Direction = "UNDERWEIGHT"
)

// Recommendation is one suggested position extracted from free-text analysis.
// Confidence and ExpectedReturn are nil when the surrounding text carried no
// parseable value for them.
type Recommendation struct {
	Symbol         string    `json:"symbol"`
	Direction      Direction `json:"direction"`
	Confidence     *float64  `json:"confidence,omitempty"`
	ExpectedReturn *float64  `json:"expected_return,omitempty"`
}
