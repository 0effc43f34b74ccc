package config

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Kind selects how an agent is built.
type Kind string

const (
	// KindChat is a single model call without tools.
	KindChat Kind = "chat"
	// KindToolLoop is the agent/tools loop.
	KindToolLoop Kind = "tool_loop"
	// KindRouter is a coordinator over other agents.
	KindRouter Kind = "router"
)

// Toolkit names understood by the runtime.
var Toolkits = []string{"calculator", "tavily", "github", "composio", "composio_github", "evm"}

// Providers understood by the runtime.
var Providers = []string{"cerebras", "openai", "anthropic", "gemini", "openrouter"}

// CandidateSpec is one routing option of a router agent.
type CandidateSpec struct {
	// Name is the label the coordinator routes to, e.g. "github_worker".
	Name string `yaml:"name"`
	// Agent is the catalog agent that handles the label.
	Agent       string   `yaml:"agent"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords,omitempty"`
}

// ExampleSpec is a few-shot routing example.
type ExampleSpec struct {
	Query    string `yaml:"query"`
	Decision string `yaml:"decision"`
}

// AgentSpec declares one agent.
type AgentSpec struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Kind         Kind     `yaml:"kind"`
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	Instructions string   `yaml:"instructions,omitempty"`
	Toolkits     []string `yaml:"toolkits,omitempty"`
	// MaxToolRounds overrides MAX_TOOL_ROUNDS for this agent.
	MaxToolRounds int `yaml:"max_tool_rounds,omitempty"`

	// Router fields.
	Role                string          `yaml:"role,omitempty"`
	Candidates          []CandidateSpec `yaml:"candidates,omitempty"`
	Examples            []ExampleSpec   `yaml:"examples,omitempty"`
	ReturnToCoordinator bool            `yaml:"return_to_coordinator,omitempty"`
	// Announce is a template for the delegation note; .worker is the label.
	Announce      string `yaml:"announce,omitempty"`
	FinishMessage string `yaml:"finish_message,omitempty"`
}

// UserSpec is an entry of the user directory.
type UserSpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

// Catalog is the set of agents served by the process.
type Catalog struct {
	// Default is the agent used when a request does not name one.
	Default string      `yaml:"default"`
	Agents  []AgentSpec `yaml:"agents"`
	// Users, when non-empty, restricts requests to these user ids.
	Users []UserSpec `yaml:"users,omitempty"`
}

// ParseCatalog decodes and validates a YAML catalog. Unknown fields are
// rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Agent returns the spec named name.
func (c *Catalog) Agent(name string) (AgentSpec, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}

	return AgentSpec{}, false
}

// User returns the directory entry of id.
func (c *Catalog) User(id string) (UserSpec, bool) {
	for _, u := range c.Users {
		if u.ID == id {
			return u, true
		}
	}

	return UserSpec{}, false
}

// Validate checks names, kinds, providers, toolkits and router references.
// Routers must not reach themselves through their candidates.
func (c *Catalog) Validate() error {
	var errs []error

	seen := map[string]bool{}

	for _, a := range c.Agents {
		switch {
		case a.Name == "":
			errs = append(errs, errors.New("agent with empty name"))
			continue
		case seen[a.Name]:
			errs = append(errs, fmt.Errorf("duplicate agent %q", a.Name))
		}

		seen[a.Name] = true

		if !slices.Contains(Providers, a.Provider) {
			errs = append(errs, fmt.Errorf("agent %q: unknown provider %q", a.Name, a.Provider))
		}

		for _, tk := range a.Toolkits {
			if !slices.Contains(Toolkits, tk) {
				errs = append(errs, fmt.Errorf("agent %q: unknown toolkit %q", a.Name, tk))
			}
		}

		switch a.Kind {
		case KindChat, KindToolLoop:
			if len(a.Candidates) > 0 {
				errs = append(errs, fmt.Errorf("agent %q: only routers have candidates", a.Name))
			}
		case KindRouter:
			if len(a.Candidates) == 0 {
				errs = append(errs, fmt.Errorf("agent %q: router without candidates", a.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("agent %q: unknown kind %q", a.Name, a.Kind))
		}
	}

	for _, a := range c.Agents {
		for _, cand := range a.Candidates {
			if cand.Name == "" || cand.Name == "finish" {
				errs = append(errs, fmt.Errorf("agent %q: invalid candidate name %q", a.Name, cand.Name))
			}

			if !seen[cand.Agent] {
				errs = append(errs, fmt.Errorf("agent %q: candidate %q refers to unknown agent %q", a.Name, cand.Name, cand.Agent))
			}
		}
	}

	if len(errs) == 0 {
		for _, a := range c.Agents {
			if c.reaches(a.Name, a.Name, map[string]bool{}) {
				errs = append(errs, fmt.Errorf("agent %q routes to itself", a.Name))
			}
		}
	}

	if c.Default != "" && !seen[c.Default] {
		errs = append(errs, fmt.Errorf("default agent %q is not declared", c.Default))
	}

	users := map[string]bool{}

	for _, u := range c.Users {
		if u.ID == "" || users[u.ID] {
			errs = append(errs, fmt.Errorf("invalid or duplicate user id %q", u.ID))
		}

		users[u.ID] = true
	}

	return errors.Join(errs...)
}

func (c *Catalog) reaches(from, target string, visited map[string]bool) bool {
	a, _ := c.Agent(from)

	for _, cand := range a.Candidates {
		if cand.Agent == target {
			return true
		}

		if visited[cand.Agent] {
			continue
		}

		visited[cand.Agent] = true

		if c.reaches(cand.Agent, target, visited) {
			return true
		}
	}

	return false
}
