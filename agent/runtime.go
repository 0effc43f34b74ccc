package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ordo-ai/agentgraph/config"
	"github.com/ordo-ai/agentgraph/graph"
	"github.com/ordo-ai/agentgraph/internal/util"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/model"
	"github.com/ordo-ai/agentgraph/router"
	"github.com/ordo-ai/agentgraph/tool"
)

// ErrUnknownAgent is returned for names the catalog does not declare.
var ErrUnknownAgent = errors.New("unknown agent")

// Options configures a Runtime.
type Options struct {
	// Config supplies credentials, limits and deadlines. Nil uses zero
	// values, which only works when every provider is overridden.
	Config *config.Config
	// Models replaces the gateway of a provider, keyed by provider name.
	Models map[string]model.Model
	// Toolkits replaces or adds toolkit constructors, keyed by name.
	Toolkits  map[string]ToolkitFactory
	Logger    logging.Logger
	Callbacks *graph.CallbackManager
}

// Info describes a catalog agent.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        config.Kind `json:"kind"`
	Provider    string      `json:"provider"`
	Workers     []string    `json:"workers,omitempty"`
}

// Runtime holds every catalog agent built into a graph.Runnable.
type Runtime struct {
	catalog *config.Catalog
	cfg     *config.Config
	opts    Options
	logger  *logging.GraphLogger

	mu       sync.Mutex
	models   map[string]model.Model
	toolkits map[string]*model.Lazy[[]tool.Tool]
	agents   map[string]graph.Runnable

	closeMu sync.Mutex
	closers []func()
}

// New validates the catalog and builds all agents. Provider clients and
// toolkits are not contacted until an agent first runs.
func New(catalog *config.Catalog, optFns ...func(o *Options)) (*Runtime, error) {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if catalog == nil {
		return nil, errors.New("agent: catalog is required")
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("agent: invalid catalog: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	r := &Runtime{
		catalog:  catalog,
		cfg:      cfg,
		opts:     opts,
		logger:   logging.NewGraphLogger(opts.Logger).WithComponent("runtime"),
		models:   map[string]model.Model{},
		toolkits: map[string]*model.Lazy[[]tool.Tool]{},
		agents:   map[string]graph.Runnable{},
	}

	for _, spec := range catalog.Agents {
		if _, err := r.build(spec.Name); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Catalog returns the catalog the runtime was built from.
func (r *Runtime) Catalog() *config.Catalog { return r.catalog }

// Config returns the process configuration.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Default returns the name of the default agent, or the first agent when
// the catalog names none.
func (r *Runtime) Default() string {
	if r.catalog.Default != "" {
		return r.catalog.Default
	}

	if len(r.catalog.Agents) > 0 {
		return r.catalog.Agents[0].Name
	}

	return ""
}

// Agent returns the runnable registered under name.
func (r *Runtime) Agent(name string) (graph.Runnable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAgent, name)
	}

	return a, nil
}

// Agents describes every agent in catalog order.
func (r *Runtime) Agents() []Info {
	infos := make([]Info, 0, len(r.catalog.Agents))

	for _, spec := range r.catalog.Agents {
		info := Info{
			Name:        spec.Name,
			Description: spec.Description,
			Kind:        spec.Kind,
			Provider:    spec.Provider,
		}

		for _, c := range spec.Candidates {
			info.Workers = append(info.Workers, c.Name)
		}

		infos = append(infos, info)
	}

	return infos
}

// Close releases toolkit connections.
func (r *Runtime) Close() {
	r.closeMu.Lock()
	closers := slices.Clone(r.closers)
	r.closers = nil
	r.closeMu.Unlock()

	for _, fn := range closers {
		fn()
	}
}

func (r *Runtime) onClose(fn func()) {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()

	r.closers = append(r.closers, fn)
}

// build constructs the named agent and, for routers, its workers first.
// The catalog has been validated to be acyclic.
func (r *Runtime) build(name string) (graph.Runnable, error) {
	r.mu.Lock()
	a, ok := r.agents[name]
	r.mu.Unlock()

	if ok {
		return a, nil
	}

	spec, ok := r.catalog.Agent(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAgent, name)
	}

	var err error

	switch spec.Kind {
	case config.KindRouter:
		a, err = r.buildRouter(spec)
	default:
		a, err = r.buildToolLoop(spec)
	}

	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	r.mu.Lock()
	r.agents[name] = a
	r.mu.Unlock()

	return a, nil
}

func (r *Runtime) buildToolLoop(spec config.AgentSpec) (graph.Runnable, error) {
	m, err := r.gateway(spec)
	if err != nil {
		return nil, err
	}

	rounds := spec.MaxToolRounds
	if rounds <= 0 {
		rounds = r.cfg.MaxToolRounds
	}

	toolkits := spec.Toolkits
	if spec.Kind == config.KindChat {
		toolkits = nil
	}

	return newLazyAgent(spec.Name, func(ctx context.Context) (*graph.Graph, error) {
		registry, err := r.registry(ctx, toolkits)
		if err != nil {
			return nil, err
		}

		return graph.NewToolLoop(m, registry, func(o *graph.ToolLoopOptions) {
			o.Name = spec.Name
			o.Instructions = spec.Instructions
			o.MaxToolRounds = rounds
			o.ModelTimeout = r.cfg.ModelTimeout
			o.ToolTimeout = r.cfg.ToolTimeout
			o.ToolParallelism = r.cfg.ToolParallelism
			o.Logger = r.opts.Logger
			o.Callbacks = r.opts.Callbacks
		})
	}), nil
}

func (r *Runtime) buildRouter(spec config.AgentSpec) (graph.Runnable, error) {
	m, err := r.gateway(spec)
	if err != nil {
		return nil, err
	}

	workers := make(map[string]graph.Runnable, len(spec.Candidates))
	candidates := make([]router.Candidate, 0, len(spec.Candidates))

	for _, c := range spec.Candidates {
		w, err := r.build(c.Agent)
		if err != nil {
			return nil, err
		}

		workers[c.Name] = w
		candidates = append(candidates, router.Candidate{
			Name:        c.Name,
			Description: c.Description,
			Keywords:    c.Keywords,
		})
	}

	examples := make([]router.Example, 0, len(spec.Examples))
	for _, e := range spec.Examples {
		examples = append(examples, router.Example{Query: e.Query, Decision: e.Decision})
	}

	classifier, err := router.NewClassifier(m, candidates, func(o *router.ClassifierOptions) {
		if spec.Role != "" {
			o.Role = spec.Role
		}

		o.Examples = examples
		o.Logger = r.opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return graph.NewRouter(classifier, workers, func(o *graph.RouterOptions) {
		o.Name = spec.Name
		o.ReturnToCoordinator = spec.ReturnToCoordinator
		o.FinishMessage = spec.FinishMessage
		o.MaxSteps = r.cfg.MaxSteps
		o.Logger = r.opts.Logger
		o.Callbacks = r.opts.Callbacks

		if spec.Announce != "" {
			o.Announce = announcer(spec.Announce)
		}
	})
}

// announcer renders a delegation note template with the worker label as
// .worker, falling back to the default note.
func announcer(text string) func(string) string {
	return func(worker string) string {
		note, err := util.RenderTemplate(text, map[string]any{"worker": worker})
		if err != nil {
			return graph.DelegatingNote(worker)
		}

		return note
	}
}

// lazyAgent builds its graph on first run, which is when toolkits are
// first contacted.
type lazyAgent struct {
	name  string
	graph *model.Lazy[*graph.Graph]
}

func newLazyAgent(name string, build func(ctx context.Context) (*graph.Graph, error)) *lazyAgent {
	return &lazyAgent{name: name, graph: model.NewLazy(build)}
}

func (a *lazyAgent) Name() string { return a.name }

func (a *lazyAgent) Run(ctx context.Context, in graph.State) (graph.Result, error) {
	g, err := a.graph.Get(ctx)
	if err != nil {
		return graph.Result{State: in}, fmt.Errorf("build agent %s: %w", a.name, err)
	}

	return g.Run(ctx, in)
}
