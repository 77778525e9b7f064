package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/flow"
	"github.com/flowsmith-ai/flowsmith/types"
)

// ProviderResolver maps a model name to the provider serving it.
type ProviderResolver func(model string) (Provider, error)

// StaticResolver always returns the same provider, regardless of model.
func StaticResolver(p Provider) ProviderResolver {
	return func(string) (Provider, error) { return p, nil }
}

// Factory adapts a provider resolver into the engine's agent-resolution
// hook: each flow.AgentConfig becomes a persona-bearing Agent over the
// provider serving its model.
func Factory(resolve ProviderResolver, logger *zap.Logger) flow.AgentFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(cfg *flow.AgentConfig, model string) (flow.ChatAgent, error) {
		if cfg == nil {
			return nil, types.NewError(types.ErrConfiguration, "nil agent config")
		}
		if cfg.LLM != "" {
			model = cfg.LLM
		}
		provider, err := resolve(model)
		if err != nil {
			return nil, types.Errorf(types.ErrConfiguration, "no provider for model %q", model).WithCause(err)
		}
		return New(Config{
			Role:      cfg.Role,
			Goal:      cfg.Goal,
			Backstory: cfg.Backstory,
			Model:     model,
			Tools:     cfg.Tools,
		}, provider, logger), nil
	}
}

// ChatFunc adapts a plain function into a flow.ChatAgent, handy for tests
// and for bridging non-LLM executors.
type ChatFunc func(ctx context.Context, prompt string) (string, error)

// Chat implements flow.ChatAgent.
func (f ChatFunc) Chat(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
