package agent

import (
	"context"
	"fmt"

	"github.com/ordo-ai/agentgraph/model"
	"github.com/ordo-ai/agentgraph/tool"
	"github.com/ordo-ai/agentgraph/toolkit/calculator"
	"github.com/ordo-ai/agentgraph/toolkit/composio"
	"github.com/ordo-ai/agentgraph/toolkit/evm"
	"github.com/ordo-ai/agentgraph/toolkit/github"
	"github.com/ordo-ai/agentgraph/toolkit/tavily"
)

// ToolkitFactory constructs the tools of one toolkit.
type ToolkitFactory func(ctx context.Context) ([]tool.Tool, error)

// toolkit returns the shared lazy constructor of a named toolkit.
func (r *Runtime) toolkit(name string) (*model.Lazy[[]tool.Tool], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tk, ok := r.toolkits[name]; ok {
		return tk, nil
	}

	factory, ok := r.opts.Toolkits[name]
	if !ok {
		factory, ok = r.builtinToolkit(name)
	}

	if !ok {
		return nil, fmt.Errorf("unknown toolkit %q", name)
	}

	tk := model.NewLazy(func(ctx context.Context) ([]tool.Tool, error) {
		tools, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("toolkit %s: %w", name, err)
		}

		r.logger.Debug("toolkit.ready", "toolkit", name, "tools", len(tools))

		return tools, nil
	})

	r.toolkits[name] = tk

	return tk, nil
}

func (r *Runtime) builtinToolkit(name string) (ToolkitFactory, bool) {
	tc := r.cfg.Tools

	switch name {
	case "calculator":
		return func(context.Context) ([]tool.Tool, error) {
			return calculator.Tools(), nil
		}, true
	case "tavily":
		return func(context.Context) ([]tool.Tool, error) {
			c, err := tavily.NewClient(func(o *tavily.Options) { o.APIKey = tc.TavilyAPIKey })
			if err != nil {
				return nil, err
			}

			return c.Tools(), nil
		}, true
	case "github":
		return func(context.Context) ([]tool.Tool, error) {
			return github.NewClient(func(o *github.Options) {
				o.Token = tc.GitHubToken
				o.BaseURL = tc.GitHubBaseURL
			}).Tools(), nil
		}, true
	case "composio", "composio_github":
		return func(ctx context.Context) ([]tool.Tool, error) {
			c, err := composio.NewClient(func(o *composio.Options) {
				o.APIKey = tc.ComposioAPIKey
				o.BaseURL = tc.ComposioBaseURL
			})
			if err != nil {
				return nil, err
			}

			if name == "composio" {
				return c.Tools(), nil
			}

			return c.ActionTools(ctx, composio.GitHubActions...)
		}, true
	case "evm":
		return func(ctx context.Context) ([]tool.Tool, error) {
			c, err := evm.Dial(ctx, tc.RPCURL, func(o *evm.Options) { o.Name = tc.ChainName })
			if err != nil {
				return nil, err
			}

			r.onClose(c.Close)

			return c.Tools(), nil
		}, true
	default:
		return nil, false
	}
}

// registry resolves the toolkits of an agent into one registry.
func (r *Runtime) registry(ctx context.Context, names []string) (*tool.Registry, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var tools []tool.Tool

	for _, name := range names {
		tk, err := r.toolkit(name)
		if err != nil {
			return nil, err
		}

		ts, err := tk.Get(ctx)
		if err != nil {
			return nil, err
		}

		tools = append(tools, ts...)
	}

	return tool.NewRegistry(tools...)
}
