package extract

import (
	"testing"

	"github.com/peter-kozarec/foresight/pkg/common"
)

func TestRecommendations_LabelledBlocks(t *testing.T) {
	text := "OVERWEIGHT: XLK with confidence 80 and expected return 5%. " +
		"UNDERWEIGHT: XLE expected return -2%."

	recs := Recommendations(text)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(recs), recs)
	}

	if recs[0].Symbol != "XLK" || recs[0].Direction != common.DirectionOverweight {
		t.Errorf("unexpected first recommendation: %+v", recs[0])
	}
	if recs[0].Confidence == nil || *recs[0].Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", recs[0].Confidence)
	}
	if recs[0].ExpectedReturn == nil || *recs[0].ExpectedReturn != 5.0 {
		t.Errorf("expected return 5.0, got %v", recs[0].ExpectedReturn)
	}

	if recs[1].Symbol != "XLE" || recs[1].Direction != common.DirectionUnderweight {
		t.Errorf("unexpected second recommendation: %+v", recs[1])
	}
	if recs[1].Confidence != nil {
		t.Errorf("expected nil confidence, got %v", *recs[1].Confidence)
	}
	if recs[1].ExpectedReturn == nil || *recs[1].ExpectedReturn != -2.0 {
		t.Errorf("expected return -2.0, got %v", recs[1].ExpectedReturn)
	}
}

func TestRecommendations_Dedup(t *testing.T) {
	text := "OVERWEIGHT: XLK looks strong. Later again OVERWEIGHT: XLK for momentum."

	recs := Recommendations(text)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation after dedup, got %d: %+v", len(recs), recs)
	}
	if recs[0].Symbol != "XLK" || recs[0].Direction != common.DirectionOverweight {
		t.Errorf("unexpected recommendation: %+v", recs[0])
	}
}

func TestRecommendations_ConfidenceRescale(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"percentage form", "OVERWEIGHT: SPY confidence: 80", 0.8},
		{"fractional form", "OVERWEIGHT: SPY confidence: 0.8", 0.8},
		{"unity untouched", "OVERWEIGHT: SPY confidence: 1", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Recommendations(tt.text)
			if len(recs) == 0 {
				t.Fatal("expected a recommendation")
			}
			if recs[0].Confidence == nil || *recs[0].Confidence != tt.want {
				t.Errorf("expected confidence %v, got %v", tt.want, recs[0].Confidence)
			}
		})
	}
}

func TestRecommendations_SectorVocabulary(t *testing.T) {
	text := "We remain overweight technology via QQQ given strong earnings, " +
		"while financials look stretched and we would underweight XLF here."

	recs := Recommendations(text)

	byDirection := map[string]common.Direction{}
	for _, rec := range recs {
		byDirection[rec.Symbol] = rec.Direction
	}

	if d, ok := byDirection["QQQ"]; !ok || d != common.DirectionOverweight {
		t.Errorf("expected QQQ overweight, got %v (found=%v)", d, ok)
	}
	if d, ok := byDirection["XLF"]; !ok || d != common.DirectionUnderweight {
		t.Errorf("expected XLF underweight, got %v (found=%v)", d, ok)
	}
}

func TestRecommendations_SectorWithoutDirectionSkipped(t *testing.T) {
	text := "The SPY closed flat on light volume."

	if recs := Recommendations(text); len(recs) != 0 {
		t.Errorf("expected no recommendations, got %+v", recs)
	}
}

func TestRecommendations_EmptyText(t *testing.T) {
	if recs := Recommendations(""); len(recs) != 0 {
		t.Errorf("expected no recommendations from empty text, got %+v", recs)
	}
	if recs := Recommendations("The economy continues to expand at a modest pace."); len(recs) != 0 {
		t.Errorf("expected no recommendations from neutral text, got %+v", recs)
	}
}

func TestRecommendations_MalformedNumbers(t *testing.T) {
	text := "OVERWEIGHT: XLK confidence: ... expected return ..%"

	recs := Recommendations(text)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Confidence != nil {
		t.Errorf("expected nil confidence for malformed number, got %v", *recs[0].Confidence)
	}
	if recs[0].ExpectedReturn != nil {
		t.Errorf("expected nil expected return for malformed number, got %v", *recs[0].ExpectedReturn)
	}
}

func TestRecommendations_SuffixedSymbol(t *testing.T) {
	text := "UNDERWEIGHT: BRK.B on valuation."

	recs := Recommendations(text)
	if len(recs) != 1 || recs[0].Symbol != "BRK.B" {
		t.Fatalf("expected BRK.B, got %+v", recs)
	}
	if recs[0].Direction != common.DirectionUnderweight {
		t.Errorf("expected underweight, got %v", recs[0].Direction)
	}
}
