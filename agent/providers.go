package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ordo-ai/agentgraph/config"
	"github.com/ordo-ai/agentgraph/model"
	anthropicmodel "github.com/ordo-ai/agentgraph/model/anthropic"
	"github.com/ordo-ai/agentgraph/model/gemini"
	"github.com/ordo-ai/agentgraph/model/openai"
)

// gateway returns the shared model for an agent's provider and model id.
// Agents that name the same pair share one lazily built client.
func (r *Runtime) gateway(spec config.AgentSpec) (model.Model, error) {
	if m, ok := r.opts.Models[spec.Provider]; ok {
		return m, nil
	}

	pc, err := r.cfg.Provider(spec.Provider)
	if err != nil {
		return nil, err
	}

	if spec.Model != "" {
		pc.Model = spec.Model
	}

	key := fmt.Sprintf("%s/%s", spec.Provider, pc.Model)
	if spec.Temperature != nil {
		key = fmt.Sprintf("%s@%g", key, *spec.Temperature)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[key]; ok {
		return m, nil
	}

	info := model.Info{Name: pc.Model, Provider: spec.Provider, SupportsTools: true}

	m := model.NewLazyModel(info, func(ctx context.Context) (model.Model, error) {
		return newProviderModel(ctx, spec.Provider, pc, spec.Temperature)
	})

	r.models[key] = m

	return m, nil
}

func newProviderModel(ctx context.Context, provider string, pc config.ProviderConfig, temperature *float64) (model.Model, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("no api key configured for provider %s", provider)
	}

	switch provider {
	case "cerebras", "openai", "openrouter":
		return openai.NewModel(func(o *openai.Options) {
			o.Provider = provider
			o.Model = pc.Model
			o.APIKey = pc.APIKey
			o.BaseURL = pc.BaseURL

			if temperature != nil {
				o.Temperature = *temperature
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(pc.Model)
			o.APIKey = pc.APIKey

			if temperature != nil {
				o.Temperature = *temperature
			}
		}), nil
	case "gemini":
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.Model = pc.Model
			o.APIKey = pc.APIKey
			o.BaseURL = pc.BaseURL

			if temperature != nil {
				o.Temperature = float32(*temperature)
			}
		})
		if err != nil {
			return nil, err
		}

		return m, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
