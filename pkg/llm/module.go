package llm

import "context"

// Input is the structured prompt context an analysis module receives.
type Input struct {
	EconomyState        string
	AssetClassRelations string
	Personality         string
}

// Module is a black-box analysis generator: structured context in, free-text
// analysis out. Implemented by the HTTP client for live models and by fakes
// in tests; the optimizer returns improved Modules.
type Module interface {
	Generate(ctx context.Context, input Input) (string, error)
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(ctx context.Context, input Input) (string, error)

func (f ModuleFunc) Generate(ctx context.Context, input Input) (string, error) {
	return f(ctx, input)
}
