// Package agent builds the agents declared in a config.Catalog into
// runnable graphs.
//
// A Runtime is created once per process. Chat and tool-loop agents become
// graph.NewToolLoop graphs, routers become graph.NewRouter coordinators whose
// workers are other catalog agents, so arbitrarily deep hierarchies (a
// supervisor over coordinators over workers) are expressed in the catalog
// alone.
//
// Provider gateways and toolkits are constructed on first use through
// model.Lazy: a process whose catalog mentions Gemini but never routes to it
// never needs a Gemini key.
package agent
