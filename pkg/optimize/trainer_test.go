package optimize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/llm"
)

func f64(v float64) *float64 { return &v }

var testKey = common.ModelKey{Provider: "openai", ModelName: "gpt-4o", Personality: "skeptical"}

// fakeData serves one stored analysis per date, recommending XLK overweight
// with configurable realized outperformance.
type fakeData struct {
	dates           []time.Time
	outperformances map[string]float64
}

func (f *fakeData) EvaluationDates(_ context.Context, _ common.ModelKey, _, _ *time.Time) ([]time.Time, error) {
	return f.dates, nil
}

func (f *fakeData) LatestRecommendations(_ context.Context, referenceDate time.Time, _ common.ModelKey) (string, string, error) {
	if _, ok := f.outperformances[referenceDate.Format("2006-01-02")]; !ok {
		return "", "", common.ErrNotFound
	}
	return "Overweight: XLK looks strong.", "skeptical", nil
}

func (f *fakeData) EconomyState(_ context.Context, referenceDate time.Time, _ common.ModelKey) (string, error) {
	return "economy " + referenceDate.Format("2006-01"), nil
}

func (f *fakeData) AssetClassRelations(_ context.Context, _ time.Time, _ common.ModelKey) (string, error) {
	return "relations", nil
}

func (f *fakeData) ForwardReturns(_ context.Context, symbols []string, referenceDate time.Time, horizons []common.Horizon) (map[string]common.Outcomes, error) {
	outperformance := f.outperformances[referenceDate.Format("2006-01-02")]
	outcomes := common.Outcomes{}
	for _, h := range horizons {
		outcomes[h] = common.HorizonOutcome{
			ActualReturn:    f64(1.0 + outperformance),
			BenchmarkReturn: 1.0,
			Outperformance:  f64(outperformance),
		}
	}
	result := make(map[string]common.Outcomes, len(symbols))
	for _, symbol := range symbols {
		result[symbol] = outcomes
	}
	return result, nil
}

func monthlyData(months int, outperformance float64) *fakeData {
	data := &fakeData{outperformances: map[string]float64{}}
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		date := start.AddDate(0, i, 0)
		data.dates = append(data.dates, date)
		data.outperformances[date.Format("2006-01-02")] = outperformance
	}
	return data
}

type fakeOptimizer struct {
	compiled Compiled
	err      error
	train    int
	val      int
}

func (f *fakeOptimizer) Compile(_ context.Context, _ llm.Module, _ Metric, train, val []common.TrainingExample) (Compiled, error) {
	f.train = len(train)
	f.val = len(val)
	return f.compiled, f.err
}

// staticModule always answers with the same text.
func staticModule(text string) llm.Module {
	return llm.ModuleFunc(func(context.Context, llm.Input) (string, error) {
		return text, nil
	})
}

func TestOptimizeBuildTrainingSet(t *testing.T) {
	trainer := NewTrainer(zap.NewNop(), monthlyData(12, 2.0), &fakeOptimizer{}, WithMinExamples(10))

	examples, err := trainer.BuildTrainingSet(context.Background(), testKey, nil, nil)
	if err != nil {
		t.Fatalf("BuildTrainingSet() unexpected error: %v", err)
	}
	if len(examples) != 12 {
		t.Fatalf("BuildTrainingSet() returned %d examples, want 12", len(examples))
	}

	first := examples[0]
	if first.Recommendation.Symbol != "XLK" || first.Recommendation.Direction != common.DirectionOverweight {
		t.Errorf("BuildTrainingSet() recommendation = %+v, want overweight XLK", first.Recommendation)
	}
	if first.EconomyState != "economy 2023-01" {
		t.Errorf("BuildTrainingSet() economy state = %q", first.EconomyState)
	}
	if len(first.Outcomes) != len(common.DefaultHorizons) {
		t.Errorf("BuildTrainingSet() outcomes = %d horizons, want %d", len(first.Outcomes), len(common.DefaultHorizons))
	}
}

func TestOptimizeBuildTrainingSet_InsufficientData(t *testing.T) {
	trainer := NewTrainer(zap.NewNop(), monthlyData(5, 2.0), &fakeOptimizer{}, WithMinExamples(10))

	_, err := trainer.BuildTrainingSet(context.Background(), testKey, nil, nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("BuildTrainingSet() error = %v, want ErrInsufficientData", err)
	}
}

func TestOptimizeSplit(t *testing.T) {
	tests := []struct {
		total     int
		wantTrain int
	}{
		{10, 8},
		{250, 200},
		{5, 4},
		{1, 0},
	}

	for _, tt := range tests {
		examples := make([]common.TrainingExample, tt.total)
		for i := range examples {
			examples[i].EconomyState = fmt.Sprintf("example %d", i)
		}

		train, val := Split(examples)
		if len(train) != tt.wantTrain {
			t.Errorf("Split(%d) train = %d, want %d", tt.total, len(train), tt.wantTrain)
		}
		if len(train)+len(val) != tt.total {
			t.Errorf("Split(%d) dropped examples: %d + %d", tt.total, len(train), len(val))
		}
		// Positional split: repeated runs see identical sets.
		if tt.total > 0 && train != nil && len(train) > 0 && train[0].EconomyState != "example 0" {
			t.Errorf("Split(%d) reordered examples", tt.total)
		}
	}
}

func TestOptimizeAccuracyMetric(t *testing.T) {
	hit := common.TrainingExample{
		Recommendation: common.Recommendation{Symbol: "XLK", Direction: common.DirectionOverweight},
		Outcomes: common.Outcomes{
			common.Horizon1M: {ActualReturn: f64(3.0), BenchmarkReturn: 1.0},
		},
	}
	if got := AccuracyMetric(hit); got != 1.0 {
		t.Errorf("AccuracyMetric(hit) = %v, want 1.0", got)
	}

	miss := hit
	miss.Recommendation.Direction = common.DirectionUnderweight
	if got := AccuracyMetric(miss); got != 0.0 {
		t.Errorf("AccuracyMetric(miss) = %v, want 0.0", got)
	}
}

func TestOptimizeTrainer_Optimize(t *testing.T) {
	// Every stored recommendation beat the benchmark, so a module that
	// repeats the overweight XLK call scores 1.0 on validation.
	optimizer := &fakeOptimizer{compiled: Compiled{
		Module:       staticModule("Overweight: XLK remains the call."),
		Instructions: "tuned",
	}}
	trainer := NewTrainer(zap.NewNop(), monthlyData(20, 2.0), optimizer, WithMinExamples(10))

	examples, err := trainer.BuildTrainingSet(context.Background(), testKey, nil, nil)
	if err != nil {
		t.Fatalf("BuildTrainingSet() unexpected error: %v", err)
	}

	// Baseline recommends the wrong direction everywhere.
	baseline := staticModule("Underweight: XLK is overvalued.")

	result, err := trainer.Optimize(context.Background(), "macro", testKey, baseline, examples)
	if err != nil {
		t.Fatalf("Optimize() unexpected error: %v", err)
	}

	if result.BaselineAccuracy != 0.0 {
		t.Errorf("Optimize() baseline accuracy = %v, want 0.0", result.BaselineAccuracy)
	}
	if result.OptimizedAccuracy != 1.0 {
		t.Errorf("Optimize() optimized accuracy = %v, want 1.0", result.OptimizedAccuracy)
	}
	if result.ModuleName != "macro" || result.Personality != "skeptical" {
		t.Errorf("Optimize() identity = %s/%s", result.ModuleName, result.Personality)
	}
	if result.Version == "" {
		t.Error("Optimize() produced empty version")
	}
	if _, err := time.Parse("20060102_150405", result.Version); err != nil {
		t.Errorf("Optimize() version %q not timestamp-formatted: %v", result.Version, err)
	}
	if optimizer.train != 16 || optimizer.val != 4 {
		t.Errorf("Optimize() passed %d/%d train/val examples, want 16/4", optimizer.train, optimizer.val)
	}
	if result.Compiled.Instructions != "tuned" {
		t.Errorf("Optimize() instructions = %q", result.Compiled.Instructions)
	}
}

func TestOptimizeTrainer_OptimizeBelowMinimum(t *testing.T) {
	trainer := NewTrainer(zap.NewNop(), monthlyData(3, 2.0), &fakeOptimizer{}, WithMinExamples(10))

	_, err := trainer.Optimize(context.Background(), "macro", testKey, staticModule("x"),
		make([]common.TrainingExample, 3))
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Optimize() error = %v, want ErrInsufficientData", err)
	}
}

func TestOptimizeFewShot_Compile(t *testing.T) {
	var examples []common.TrainingExample
	for i := 0; i < 12; i++ {
		outperformance := float64(i) - 6.0
		examples = append(examples, common.TrainingExample{
			ReferenceDate:  time.Date(2023, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Recommendation: common.Recommendation{Symbol: "XLK", Direction: common.DirectionOverweight},
			Outcomes: common.Outcomes{
				common.Horizon1M: {ActualReturn: f64(1.0 + outperformance), BenchmarkReturn: 1.0, Outperformance: f64(outperformance)},
			},
		})
	}

	var seenState string
	baseline := llm.ModuleFunc(func(_ context.Context, input llm.Input) (string, error) {
		seenState = input.EconomyState
		return "ok", nil
	})

	compiled, err := NewFewShot(4).Compile(context.Background(), baseline, AccuracyMetric, examples, nil)
	if err != nil {
		t.Fatalf("Compile() unexpected error: %v", err)
	}
	if compiled.Instructions == "" {
		t.Fatal("Compile() produced empty instructions")
	}
	if strings.Count(compiled.Instructions, "XLK") != 4 {
		t.Errorf("Compile() kept %d demonstrations, want 4", strings.Count(compiled.Instructions, "XLK"))
	}

	if _, err := compiled.Module.Generate(context.Background(), llm.Input{EconomyState: "state"}); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if !strings.Contains(seenState, "state") || !strings.Contains(seenState, "XLK") {
		t.Errorf("Generate() did not prepend demonstrations: %q", seenState)
	}
}
