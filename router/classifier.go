package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/internal/util"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/model"
)

// Candidate is a worker the classifier can route to.
type Candidate struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	// Keywords recognised in the model reply. Empty means the name and its Stem.
	Keywords []string `yaml:"keywords" json:"keywords,omitempty"`
}

// Example is a few-shot hint rendered into the routing prompt.
type Example struct {
	Query    string `yaml:"query" json:"query"`
	Decision string `yaml:"decision" json:"decision"`
}

// Decision is the outcome of one classification.
type Decision struct {
	// Next is a candidate name or Finish.
	Next string
	// Raw is the unparsed model reply.
	Raw string
}

// DefaultPrompt is the routing prompt template.
const DefaultPrompt = `{{.role}}

Available workers:
{{range .candidates}}- {{.Name}}: {{.Description}}
{{end}}- finish: {{.finish}}

User task: "{{.task}}"
{{- if .last_result}}

Latest worker result: "{{.last_result}}"
{{- end}}

Analyze the task and decide which worker should handle it.
Respond with ONLY the worker name, nothing else.

Examples:
{{range .examples}}- "{{.Query}}" -> {{.Decision}}
{{end}}- If the task is complete -> finish

Your decision:`

// ClassifierOptions configures a Classifier.
type ClassifierOptions struct {
	// Role opens the prompt, e.g. "You are a GitHub coordinator managing workers."
	Role string
	// FinishDescription explains the finish option to the model.
	FinishDescription string
	Examples          []Example
	// Prompt overrides DefaultPrompt.
	Prompt string
	// Rules override the rules derived from the candidates.
	Rules  []Rule
	Logger logging.Logger
}

// Classifier asks a model to pick one of its candidates for a task.
type Classifier struct {
	model      model.Model
	candidates []Candidate
	rules      []Rule
	opts       ClassifierOptions
	logger     *logging.GraphLogger
}

// NewClassifier creates a Classifier. Candidate names must be unique and
// must not be Finish.
func NewClassifier(m model.Model, candidates []Candidate, optFns ...func(o *ClassifierOptions)) (*Classifier, error) {
	opts := ClassifierOptions{
		Role:              "You are a coordinator managing specialized worker agents.",
		FinishDescription: "The task is complete or no worker applies",
		Prompt:            DefaultPrompt,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if m == nil {
		return nil, errors.New("router: classifier has no model")
	}

	seen := make(map[string]bool, len(candidates))

	for _, c := range candidates {
		switch {
		case c.Name == "" || c.Name == Finish:
			return nil, fmt.Errorf("router: invalid candidate name %q", c.Name)
		case seen[c.Name]:
			return nil, fmt.Errorf("router: duplicate candidate %q", c.Name)
		}

		seen[c.Name] = true
	}

	rules := opts.Rules
	if len(rules) == 0 {
		rules = RulesFor(candidates)
	}

	for _, r := range rules {
		if r.Decision != Finish && !seen[r.Decision] {
			return nil, fmt.Errorf("router: rule decides unknown candidate %q", r.Decision)
		}
	}

	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}

	return &Classifier{
		model:      m,
		candidates: append([]Candidate(nil), candidates...),
		rules:      rules,
		opts:       opts,
		logger:     logging.NewGraphLogger(opts.Logger).WithComponent("router"),
	}, nil
}

// RulesFor derives one rule per candidate, in order. A candidate without
// keywords is matched by its name and by its name's stem, so "github_worker"
// also matches "github".
func RulesFor(candidates []Candidate) []Rule {
	rules := make([]Rule, 0, len(candidates))

	for _, c := range candidates {
		kws := c.Keywords
		if len(kws) == 0 {
			kws = []string{c.Name}
			if stem := Stem(c.Name); stem != c.Name {
				kws = append(kws, stem)
			}
		}

		rules = append(rules, Rule{Keywords: append([]string(nil), kws...), Decision: c.Name})
	}

	return rules
}

// Candidates returns candidate names in order.
func (c *Classifier) Candidates() []string {
	names := make([]string, len(c.candidates))
	for i, cand := range c.candidates {
		names[i] = cand.Name
	}

	return names
}

// Prompt renders the routing prompt for task. lastResult is included when
// a worker has already answered.
func (c *Classifier) Prompt(task, lastResult string) (string, error) {
	return util.RenderTemplate(c.opts.Prompt, map[string]any{
		"role":        c.opts.Role,
		"candidates":  c.candidates,
		"finish":      c.opts.FinishDescription,
		"task":        task,
		"last_result": lastResult,
		"examples":    c.opts.Examples,
	})
}

// Classify routes task. Model failures other than context cancellation
// decide Finish, so a broken provider never loops a coordinator.
func (c *Classifier) Classify(ctx context.Context, task, lastResult string) (Decision, error) {
	prompt, err := c.Prompt(task, lastResult)
	if err != nil {
		return Decision{}, err
	}

	resp, err := c.model.Generate(ctx, model.Request{
		Messages: []core.Message{core.NewUserMessage(prompt)},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}

		c.logger.Warn("router.classify.failed", "error", err.Error())

		return Decision{Next: Finish}, nil
	}

	raw := resp.Message.Content
	if resp.FinishReason == "error" {
		raw = ""
	}

	d := Decision{Next: Parse(c.rules, raw), Raw: raw}
	if d.Next == Finish && !strings.Contains(strings.ToLower(raw), Finish) {
		c.logger.Debug("router.classify.ambiguous", "raw", raw)
	} else {
		c.logger.Debug("router.classify", "decision", d.Next, "raw", raw)
	}

	return d, nil
}
