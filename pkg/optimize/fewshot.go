package optimize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/peter-kozarec/foresight/pkg/common"
	"github.com/peter-kozarec/foresight/pkg/llm"
)

// FewShot is a bundled optimizer: it selects the highest-scoring training
// examples as demonstrations and prepends them to the baseline module's
// context. External optimizers can replace it behind the Optimizer interface.
type FewShot struct {
	demos int
}

// NewFewShot builds an optimizer keeping the top n demonstrations.
func NewFewShot(demos int) *FewShot {
	if demos <= 0 {
		demos = 8
	}
	return &FewShot{demos: demos}
}

func (f *FewShot) Compile(_ context.Context, baseline llm.Module, metric Metric, train, _ []common.TrainingExample) (Compiled, error) {
	if len(train) == 0 {
		return Compiled{}, fmt.Errorf("no training examples")
	}

	ranked := make([]common.TrainingExample, len(train))
	copy(ranked, train)
	sort.SliceStable(ranked, func(i, j int) bool {
		return metric(ranked[i]) > metric(ranked[j])
	})
	if len(ranked) > f.demos {
		ranked = ranked[:f.demos]
	}

	instructions := renderDemos(ranked)
	module := llm.ModuleFunc(func(ctx context.Context, input llm.Input) (string, error) {
		input.EconomyState = instructions + "\n\n" + input.EconomyState
		return baseline.Generate(ctx, input)
	})

	return Compiled{Module: module, Instructions: instructions}, nil
}

// renderDemos formats demonstrations of recommendations that beat the
// benchmark.
func renderDemos(examples []common.TrainingExample) string {
	var b strings.Builder
	b.WriteString("Past recommendations and their realized outcomes:\n")
	for _, example := range examples {
		rec := example.Recommendation
		fmt.Fprintf(&b, "- %s %s (%s):", rec.Direction, rec.Symbol,
			example.ReferenceDate.Format("2006-01"))
		for _, h := range common.DefaultHorizons {
			outcome, ok := example.Outcomes[h]
			if !ok || outcome.Outperformance == nil {
				continue
			}
			fmt.Fprintf(&b, " %dm %+.2f%% vs benchmark;", h, *outcome.Outperformance)
		}
		b.WriteString("\n")
	}
	return b.String()
}
