// Package router turns free-form model replies into routing decisions.
//
// A coordinator asks a model which worker should handle a task. The reply is
// never trusted to be exactly a worker name: Parse lower-cases it and checks
// an ordered list of keyword rules, first match wins, and anything unmatched
// becomes Finish.
package router

import "strings"

// Finish is the decision that ends a routed conversation.
const Finish = "finish"

// Rule maps any of its keywords to a decision.
type Rule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Decision string   `yaml:"decision" json:"decision"`
}

// Matches reports whether text (already lower-cased) contains a keyword.
func (r Rule) Matches(text string) bool {
	for _, kw := range r.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}

	return false
}

// Parse returns the decision of the first rule whose keyword occurs in raw,
// or Finish when none does. Matching is case-insensitive substring search.
func Parse(rules []Rule, raw string) string {
	text := strings.ToLower(raw)

	for _, r := range rules {
		if r.Matches(text) {
			return r.Decision
		}
	}

	return Finish
}

var roleSuffixes = []string{"_worker", "_agent", "_team", "_supervisor", "_coordinator"}

// Stem strips a trailing role suffix from a worker name.
func Stem(name string) string {
	for _, suf := range roleSuffixes {
		if stem, ok := strings.CutSuffix(name, suf); ok && stem != "" {
			return stem
		}
	}

	return name
}

// Classify maps text to one of names using their stems as keywords, in the
// given priority order.
func Classify(text string, names ...string) string {
	rules := make([]Rule, len(names))
	for i, n := range names {
		rules[i] = Rule{Keywords: []string{n, Stem(n)}, Decision: n}
	}

	return Parse(rules, text)
}
