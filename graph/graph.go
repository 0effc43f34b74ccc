package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
)

// End is the terminal node name. Edges pointing to End stop the run.
const End = "__end__"

// DefaultMaxSteps bounds runs that do not set Options.MaxSteps.
const DefaultMaxSteps = 25

var (
	// ErrNoEntryPoint is returned by Compile when SetEntryPoint was never called.
	ErrNoEntryPoint = errors.New("graph: entry point not set")
	// ErrUnknownNode is returned by Compile for edges to or from undeclared nodes.
	ErrUnknownNode = errors.New("graph: unknown node")
)

// NodeFunc executes one step and returns the partial state to merge.
type NodeFunc func(ctx context.Context, s State) (Update, error)

// RouteFunc selects an outgoing label from the merged state.
type RouteFunc func(ctx context.Context, s State) string

// Runnable is anything that can execute a run over State. Compiled graphs
// implement it, which is how workers are nested inside a router.
type Runnable interface {
	Name() string
	Run(ctx context.Context, in State) (Result, error)
}

// Result is the outcome of a run.
type Result struct {
	// State is the final state. On error it is the state after the last
	// completed step.
	State State
	// Steps is the number of node executions.
	Steps int
	// Path lists executed nodes in order.
	Path []string
}

// Reply returns the content of the final message, or "".
func (r Result) Reply() string {
	if m, ok := r.State.LastMessage(); ok {
		return m.Content
	}

	return ""
}

// NewMessages returns the messages appended after the first n.
func (r Result) NewMessages(n int) []core.Message {
	if n >= len(r.State.Messages) {
		return nil
	}

	return r.State.Messages[n:]
}

type branch struct {
	route   RouteFunc
	targets map[string]string
}

// Builder declares nodes and edges and compiles them into a Graph.
// Builder methods record the first error and Compile reports it.
type Builder struct {
	nodes    map[string]NodeFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	entry    string
	err      error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

// AddNode declares a node.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	switch {
	case name == "" || name == End:
		b.fail(fmt.Errorf("graph: invalid node name %q", name))
	case fn == nil:
		b.fail(fmt.Errorf("graph: node %q has nil function", name))
	case b.nodes[name] != nil:
		b.fail(fmt.Errorf("graph: duplicate node %q", name))
	default:
		b.nodes[name] = fn
		b.order = append(b.order, name)
	}

	return b
}

// AddEdge declares an unconditional edge.
func (b *Builder) AddEdge(from, to string) *Builder {
	if b.hasOutgoing(from) {
		b.fail(fmt.Errorf("graph: node %q already has an outgoing edge", from))
		return b
	}

	b.edges[from] = to

	return b
}

// AddConditionalEdges declares a routed edge. route returns a label that is
// looked up in targets; labels missing from targets go to End.
func (b *Builder) AddConditionalEdges(from string, route RouteFunc, targets map[string]string) *Builder {
	switch {
	case route == nil:
		b.fail(fmt.Errorf("graph: node %q has nil route", from))
	case b.hasOutgoing(from):
		b.fail(fmt.Errorf("graph: node %q already has an outgoing edge", from))
	default:
		b.branches[from] = branch{route: route, targets: targets}
	}

	return b
}

// SetEntryPoint names the first node of every run.
func (b *Builder) SetEntryPoint(name string) *Builder {
	b.entry = name
	return b
}

func (b *Builder) hasOutgoing(from string) bool {
	_, e := b.edges[from]
	_, c := b.branches[from]

	return e || c
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Options configures a compiled Graph.
type Options struct {
	// Name identifies the graph in logs, callbacks and errors.
	Name string
	// MaxSteps bounds node executions per run. Zero uses DefaultMaxSteps.
	MaxSteps int
	// Logger receives graph.* events.
	Logger logging.Logger
	// Callbacks receives lifecycle hooks.
	Callbacks *CallbackManager
}

// WithMaxSteps sets the step budget of a compiled graph.
func WithMaxSteps(n int) func(o *Options) {
	return func(o *Options) { o.MaxSteps = n }
}

// Compile validates the declaration and returns an immutable Graph.
func (b *Builder) Compile(optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{
		Name:     "graph",
		MaxSteps: DefaultMaxSteps,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	if opts.MaxSteps < 0 {
		return nil, fmt.Errorf("max steps must be positive, got %d", opts.MaxSteps)
	}

	if b.err != nil {
		return nil, b.err
	}

	if b.entry == "" {
		return nil, ErrNoEntryPoint
	}

	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("%w: entry point %q", ErrUnknownNode, b.entry)
	}

	valid := func(name string) bool {
		_, ok := b.nodes[name]
		return ok || name == End
	}

	for _, name := range b.order {
		if !b.hasOutgoing(name) {
			return nil, fmt.Errorf("graph: node %q has no outgoing edge", name)
		}
	}

	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from %q", ErrUnknownNode, from)
		}

		if !valid(to) {
			return nil, fmt.Errorf("%w: edge %q -> %q", ErrUnknownNode, from, to)
		}
	}

	for from, br := range b.branches {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from %q", ErrUnknownNode, from)
		}

		for label, to := range br.targets {
			if !valid(to) {
				return nil, fmt.Errorf("%w: edge %q -[%s]-> %q", ErrUnknownNode, from, label, to)
			}
		}
	}

	g := &Graph{
		name:     opts.Name,
		entry:    b.entry,
		nodes:    make(map[string]NodeFunc, len(b.nodes)),
		order:    slices.Clone(b.order),
		edges:    make(map[string]string, len(b.edges)),
		branches: make(map[string]branch, len(b.branches)),
		opts:     opts,
		logger:   logging.NewGraphLogger(opts.Logger).WithComponent("graph").WithContext("graph", opts.Name),
	}

	for k, v := range b.nodes {
		g.nodes[k] = v
	}

	for k, v := range b.edges {
		g.edges[k] = v
	}

	for k, v := range b.branches {
		targets := make(map[string]string, len(v.targets))
		for label, to := range v.targets {
			targets[label] = to
		}

		g.branches[k] = branch{route: v.route, targets: targets}
	}

	return g, nil
}

// Graph is a compiled, immutable routing graph. It is safe for concurrent
// runs; each run owns its State.
type Graph struct {
	name     string
	entry    string
	nodes    map[string]NodeFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	opts     Options
	logger   *logging.GraphLogger
}

// Name implements Runnable.
func (g *Graph) Name() string { return g.name }

// Nodes returns node names in declaration order.
func (g *Graph) Nodes() []string { return slices.Clone(g.order) }

// MaxSteps returns the step budget enforced by Run.
func (g *Graph) MaxSteps() int { return g.opts.MaxSteps }

// Run executes the graph from its entry point until End.
//
// When the step budget is exhausted the run stops with a
// *core.NonConvergenceError (errors.Is(err, core.ErrNotConverged)) and the
// partial Result. Context cancellation is checked before every step. A
// failing node may still return an Update; it is applied to the partial
// state before the run stops, without counting as a step.
func (g *Graph) Run(ctx context.Context, in State) (res Result, err error) {
	start := time.Now()

	state := State{
		Messages:   core.CloneMessages(in.Messages),
		Next:       in.Next,
		LastResult: in.LastResult,
	}
	limiter := core.NewStepLimiter(g.opts.MaxSteps)
	current := g.entry

	defer func() {
		res.State = state
		_ = g.opts.Callbacks.ExecuteCallbacks(ctx, CallbackRunEnd, &CallbackContext{
			Graph:    g.name,
			Step:     res.Steps,
			State:    state,
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	for current != End {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !limiter.Increment() {
			g.logger.Warn("graph.not_converged", "max_steps", g.opts.MaxSteps, "last_node", lastOf(res.Path))

			return res, &core.NonConvergenceError{
				Graph:    g.name,
				MaxSteps: g.opts.MaxSteps,
				LastNode: lastOf(res.Path),
			}
		}

		step := res.Steps + 1

		if err := g.opts.Callbacks.ExecuteCallbacks(ctx, CallbackBeforeNode, &CallbackContext{
			Graph: g.name, Node: current, Step: step, State: state,
		}); err != nil {
			return res, err
		}

		nodeStart := time.Now()
		upd, err := g.nodes[current](ctx, state)
		dur := time.Since(nodeStart)

		if err != nil {
			state = state.Apply(upd)
			g.logger.LogNodeExecution(current, step, dur, err)

			return res, fmt.Errorf("node %q: %w", current, err)
		}

		state = state.Apply(upd)
		res.Steps = step
		res.Path = append(res.Path, current)

		g.logger.LogNodeExecution(current, step, dur, nil)

		if err := g.opts.Callbacks.ExecuteCallbacks(ctx, CallbackAfterNode, &CallbackContext{
			Graph: g.name, Node: current, Step: step, State: state, Update: &upd, Duration: dur,
		}); err != nil {
			return res, err
		}

		next := g.next(ctx, current, state)

		if err := g.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnRoute, &CallbackContext{
			Graph: g.name, Node: current, Target: next, Step: step, State: state,
		}); err != nil {
			return res, err
		}

		current = next
	}

	return res, nil
}

func (g *Graph) next(ctx context.Context, from string, s State) string {
	if to, ok := g.edges[from]; ok {
		return to
	}

	br := g.branches[from]
	label := br.route(ctx, s)

	if to, ok := br.targets[label]; ok {
		return to
	}

	g.logger.Debug("graph.route.unknown_label", "node", from, "label", label)

	return End
}

func lastOf(path []string) string {
	if len(path) == 0 {
		return ""
	}

	return path[len(path)-1]
}
