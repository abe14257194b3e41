package optimize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/foresight/pkg/backtest"
	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/extract"
	"github.com/peter-kozarec/foresight/pkg/llm"
	"github.com/peter-kozarec/foresight/pkg/utility"
)

// ErrInsufficientData reports that the assembled training set is below the
// configured minimum. This is a hard precondition: the caller must supply
// more history or lower the minimum.
var ErrInsufficientData = errors.New("insufficient training data")

const (
	// DefaultMinExamples is the training-set floor below which optimization
	// refuses to run.
	DefaultMinExamples = 200

	// trainFraction splits examples by position, not randomly, so repeated
	// runs over the same history are reproducible.
	trainFraction = 0.8

	// Accuracy evaluation and optimizer validation are capped to keep model
	// invocation costs bounded.
	accuracyEvalCap  = 50
	optimizerValsCap = 100
)

// Metric scores one training example in [0,1].
type Metric func(example common.TrainingExample) float64

// Compiled is the output of one optimization run: the improved module plus
// the serializable state that produced it.
type Compiled struct {
	Module       llm.Module
	Instructions string
}

// Optimizer is the external black-box search: given a baseline module, a
// scoring metric, and example sets, it returns an improved module. The
// trainer does data assembly, a single invocation, and the before/after
// comparison; cancellation must be imposed by the caller through ctx.
type Optimizer interface {
	Compile(ctx context.Context, baseline llm.Module, metric Metric, train, val []common.TrainingExample) (Compiled, error)
}

// DataSource is the slice of the warehouse the trainer reads. Satisfied by
// the duckdb store.
type DataSource interface {
	EvaluationDates(ctx context.Context, key common.ModelKey, from, to *time.Time) ([]time.Time, error)
	LatestRecommendations(ctx context.Context, referenceDate time.Time, key common.ModelKey) (content, personality string, err error)
	EconomyState(ctx context.Context, referenceDate time.Time, key common.ModelKey) (string, error)
	AssetClassRelations(ctx context.Context, referenceDate time.Time, key common.ModelKey) (string, error)
	ForwardReturns(ctx context.Context, symbols []string, referenceDate time.Time, horizons []common.Horizon) (map[string]common.Outcomes, error)
}

type Trainer struct {
	logger      *zap.Logger
	data        DataSource
	optimizer   Optimizer
	minExamples int
	extract     backtest.ExtractFunc
}

type Option func(*Trainer)

// WithMinExamples overrides the training-set floor.
func WithMinExamples(n int) Option {
	return func(t *Trainer) {
		t.minExamples = n
	}
}

func NewTrainer(logger *zap.Logger, data DataSource, optimizer Optimizer, opts ...Option) *Trainer {
	t := &Trainer{
		logger:      logger,
		data:        data,
		optimizer:   optimizer,
		minExamples: DefaultMinExamples,
		extract:     extract.Recommendations,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BuildTrainingSet rebuilds (recommendation, outcome) pairs from the stored
// history of the model identity: every evaluated date contributes one example
// per recommendation that has outcome data, carrying the analysis context
// that produced it. ErrInsufficientData when fewer than the minimum could be
// assembled.
func (t *Trainer) BuildTrainingSet(ctx context.Context, key common.ModelKey, from, to *time.Time) ([]common.TrainingExample, error) {
	dates, err := t.data.EvaluationDates(ctx, key, from, to)
	if err != nil {
		return nil, fmt.Errorf("list evaluation dates: %w", err)
	}
	t.logger.Info("assembling training set",
		zap.Int("dates", len(dates)),
		zap.String("model_provider", key.Provider),
		zap.String("model_name", key.ModelName),
		zap.String("personality", key.Personality))

	var examples []common.TrainingExample
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, _, err := t.data.LatestRecommendations(ctx, date, key)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("recommendations for %s: %w", date.Format("2006-01-02"), err)
		}

		recs := t.extract(content)
		if len(recs) == 0 {
			continue
		}

		economyState, err := t.data.EconomyState(ctx, date, key)
		if err != nil {
			return nil, fmt.Errorf("economy state for %s: %w", date.Format("2006-01-02"), err)
		}
		relations, err := t.data.AssetClassRelations(ctx, date, key)
		if err != nil {
			return nil, fmt.Errorf("asset class relations for %s: %w", date.Format("2006-01-02"), err)
		}

		symbols := make([]string, 0, len(recs))
		for _, rec := range recs {
			symbols = append(symbols, rec.Symbol)
		}
		returns, err := t.data.ForwardReturns(ctx, symbols, date, common.DefaultHorizons)
		if err != nil {
			return nil, fmt.Errorf("forward returns for %s: %w", date.Format("2006-01-02"), err)
		}

		for _, rec := range recs {
			outcomes, ok := returns[rec.Symbol]
			if !ok {
				continue
			}
			examples = append(examples, common.TrainingExample{
				ReferenceDate:       date,
				EconomyState:        economyState,
				AssetClassRelations: relations,
				Personality:         key.Personality,
				Recommendation:      rec,
				Outcomes:            outcomes,
			})
		}
	}

	if len(examples) < t.minExamples {
		return nil, fmt.Errorf("%d examples for %s/%s/%s, need %d: %w",
			len(examples), key.Provider, key.ModelName, key.Personality,
			t.minExamples, ErrInsufficientData)
	}
	return examples, nil
}

// Split divides examples into training and validation sets by position.
func Split(examples []common.TrainingExample) (train, val []common.TrainingExample) {
	idx := int(float64(len(examples)) * trainFraction)
	return examples[:idx], examples[idx:]
}

// AccuracyMetric scores an example by how the stored recommendation fared
// against its realized outcomes.
func AccuracyMetric(example common.TrainingExample) float64 {
	_, score := backtest.Score(example.Recommendation, example.Outcomes)
	return score
}

// Result is the before/after comparison for one optimization run.
type Result struct {
	ModuleName        string
	Version           string
	Personality       string
	BaselineAccuracy  float64
	OptimizedAccuracy float64
	ImprovementPct    float64
	Compiled          Compiled
}

// Optimize runs the black-box optimizer over the assembled examples and
// measures the improvement of the compiled module against the baseline. The
// registry decides separately whether the result is worth keeping.
func (t *Trainer) Optimize(ctx context.Context, moduleName string, key common.ModelKey, baseline llm.Module, examples []common.TrainingExample) (Result, error) {
	if len(examples) < t.minExamples {
		return Result{}, fmt.Errorf("%d examples, need %d: %w", len(examples), t.minExamples, ErrInsufficientData)
	}

	train, val := Split(examples)

	baselineAccuracy := t.accuracy(ctx, baseline, val, key.Personality)
	t.logger.Info("baseline accuracy", zap.Float64("accuracy", baselineAccuracy))

	compiled, err := t.optimizer.Compile(ctx, baseline, AccuracyMetric, train, capVal(val))
	if err != nil {
		return Result{}, fmt.Errorf("optimizer compile: %w", err)
	}

	optimizedAccuracy := t.accuracy(ctx, compiled.Module, val, key.Personality)
	improvement := common.Improvement(baselineAccuracy, optimizedAccuracy)
	t.logger.Info("optimized accuracy",
		zap.Float64("accuracy", optimizedAccuracy),
		zap.Float64("improvement_pct", improvement))

	return Result{
		ModuleName:        moduleName,
		Version:           time.Now().UTC().Format("20060102_150405"),
		Personality:       key.Personality,
		BaselineAccuracy:  utility.Rescale4(baselineAccuracy),
		OptimizedAccuracy: utility.Rescale4(optimizedAccuracy),
		ImprovementPct:    utility.Rescale4(improvement),
		Compiled:          compiled,
	}, nil
}

// accuracy runs the module over a capped validation slice and averages the
// metric. Generation failures are logged and excluded rather than aborting
// the whole measurement.
func (t *Trainer) accuracy(ctx context.Context, module llm.Module, val []common.TrainingExample, personality string) float64 {
	slice := val
	if len(slice) > accuracyEvalCap {
		slice = slice[:accuracyEvalCap]
	}

	var sum float64
	scored := 0
	for _, example := range slice {
		text, err := module.Generate(ctx, llm.Input{
			EconomyState:        example.EconomyState,
			AssetClassRelations: example.AssetClassRelations,
			Personality:         personality,
		})
		if err != nil {
			t.logger.Warn("module generation failed during evaluation", zap.Error(err))
			continue
		}
		sum += t.scoreGenerated(text, example)
		scored++
	}

	if scored == 0 {
		return 0.0
	}
	return sum / float64(scored)
}

// scoreGenerated matches the module's output against the example's known
// outcomes: the example only carries returns for its own symbol, so any
// other extracted recommendation cannot be judged. No matching
// recommendation scores zero.
func (t *Trainer) scoreGenerated(text string, example common.TrainingExample) float64 {
	for _, rec := range t.extract(text) {
		if rec.Symbol != example.Recommendation.Symbol {
			continue
		}
		_, accuracy := backtest.Score(rec, example.Outcomes)
		return accuracy
	}
	return 0.0
}

func capVal(examples []common.TrainingExample) []common.TrainingExample {
	if len(examples) > optimizerValsCap {
		return examples[:optimizerValsCap]
	}
	return examples
}
