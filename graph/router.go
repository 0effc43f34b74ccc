package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/router"
)

// CoordinatorNode is the entry node of router graphs.
const CoordinatorNode = "coordinator"

// Classifier picks the next worker for a task. *router.Classifier
// implements it.
type Classifier interface {
	Classify(ctx context.Context, task, lastResult string) (router.Decision, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, task, lastResult string) (router.Decision, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, task, lastResult string) (router.Decision, error) {
	return f(ctx, task, lastResult)
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Name string
	// ReturnToCoordinator sends every worker back to the coordinator
	// instead of ending the run after the first worker.
	ReturnToCoordinator bool
	// Announce renders the note appended when delegating; the default
	// is "Delegating to <worker>...". Returning "" appends nothing.
	Announce func(worker string) string
	// FinishMessage is appended when the coordinator finishes before any
	// worker has run. Empty appends nothing.
	FinishMessage string
	MaxSteps      int
	Logger        logging.Logger
	Callbacks     *CallbackManager
}

// DelegatingNote is the default Announce.
func DelegatingNote(worker string) string {
	return fmt.Sprintf("Delegating to %s...", strings.ReplaceAll(worker, "_", " "))
}

// NewRouter builds a coordinator graph:
//
//	coordinator --(worker name)--> worker --> End | coordinator
//	coordinator --(finish or unknown)--> End
//
// Workers are nested Runnables (typically tool loops or other routers). The
// coordinator classifies the most recent user message; labels that do not
// name a worker end the run.
func NewRouter(classifier Classifier, workers map[string]Runnable, optFns ...func(o *RouterOptions)) (*Graph, error) {
	opts := RouterOptions{
		Name:     "router",
		Announce: DelegatingNote,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if classifier == nil {
		return nil, errors.New("graph: router has no classifier")
	}

	if len(workers) == 0 {
		return nil, fmt.Errorf("graph: router %q has no workers", opts.Name)
	}

	logger := logging.NewGraphLogger(opts.Logger).WithComponent("graph").WithContext("graph", opts.Name)

	b := NewBuilder()
	targets := map[string]string{router.Finish: End}

	for _, name := range slices.Sorted(maps.Keys(workers)) {
		if name == CoordinatorNode || name == router.Finish {
			return nil, fmt.Errorf("graph: reserved worker name %q", name)
		}

		w := workers[name]
		if w == nil {
			return nil, fmt.Errorf("graph: worker %q is nil", name)
		}

		note := ""
		if opts.Announce != nil {
			note = opts.Announce(name)
		}

		b.AddNode(name, delegateNode(w, note))
		targets[name] = name

		if opts.ReturnToCoordinator {
			b.AddEdge(name, CoordinatorNode)
		} else {
			b.AddEdge(name, End)
		}
	}

	coord := func(ctx context.Context, s State) (Update, error) {
		task := core.LastUserText(s.Messages)

		lastResult := ""
		if opts.ReturnToCoordinator {
			lastResult = s.LastResult
		}

		d, err := classifier.Classify(ctx, task, lastResult)
		if err != nil {
			return Update{}, fmt.Errorf("classify: %w", err)
		}

		next := d.Next
		if _, ok := workers[next]; !ok {
			next = router.Finish
		}

		logger.LogRoute(opts.Name, next, d.Raw)

		upd := Update{Next: String(next)}

		switch {
		case next != router.Finish:
			if opts.Announce == nil {
				break
			}

			if note := opts.Announce(next); note != "" {
				upd.Messages = []core.Message{core.NewAssistantMessage(note)}
			}
		case s.LastResult == "" && opts.FinishMessage != "":
			upd.Messages = []core.Message{core.NewAssistantMessage(opts.FinishMessage)}
		}

		return upd, nil
	}

	return b.
		AddNode(CoordinatorNode, coord).
		SetEntryPoint(CoordinatorNode).
		AddConditionalEdges(CoordinatorNode, func(_ context.Context, s State) string { return s.Next }, targets).
		Compile(func(o *Options) {
			o.Name = opts.Name
			o.MaxSteps = opts.MaxSteps
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
}

// SubgraphNode runs r on the current messages and merges back what it
// appended. The worker's final message content becomes LastResult. Worker
// errors, including non-convergence, fail the parent step; the messages the
// worker appended before failing are still merged into the partial state.
func SubgraphNode(r Runnable) NodeFunc {
	return delegateNode(r, "")
}

// delegateNode is SubgraphNode for a router worker. When the history ends
// on the coordinator's delegation note, the worker runs without it so its
// model sees the user turn last; the note stays in the parent transcript.
func delegateNode(r Runnable, note string) NodeFunc {
	return func(ctx context.Context, s State) (Update, error) {
		input := s.Messages
		if note != "" {
			if last, ok := s.LastMessage(); ok && last.Role == core.RoleAssistant && !last.HasToolCalls() && last.Content == note {
				input = input[:len(input)-1]
			}
		}

		res, err := r.Run(ctx, State{Messages: input})

		upd := Update{Messages: res.NewMessages(len(input))}
		if len(upd.Messages) > 0 {
			upd.LastResult = String(res.Reply())
		}

		if err != nil {
			return upd, fmt.Errorf("worker %s: %w", r.Name(), err)
		}

		upd.LastResult = String(res.Reply())

		return upd, nil
	}
}
