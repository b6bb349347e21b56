// Package tools defines the tool catalog the planning agent can call
// during a turn. Concrete tools live in the amadeus and guide
// subpackages; this package only carries the contract between a tool
// and the agent loop.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a single callable capability exposed to the agent. Parameters
// is a JSON Schema fragment describing the arguments object; Call
// receives the raw arguments the model produced and returns a string
// the agent stores verbatim as a tool message. Tools validate their own
// arguments; the agent performs no semantic checks.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Call        func(ctx context.Context, args json.RawMessage) (string, error)
}

// Catalog is an ordered set of tools, keyed by name for dispatch.
type Catalog struct {
	order []string
	tools map[string]Tool
}

// NewCatalog builds a catalog from the given tools. Duplicate names are
// a programmer error and panic.
func NewCatalog(ts ...Tool) *Catalog {
	c := &Catalog{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if t.Name == "" {
			panic("tools: tool name must not be empty")
		}
		if t.Call == nil {
			panic(fmt.Sprintf("tools: tool %q has nil Call", t.Name))
		}
		if _, dup := c.tools[t.Name]; dup {
			panic(fmt.Sprintf("tools: duplicate tool name %q", t.Name))
		}
		c.order = append(c.order, t.Name)
		c.tools[t.Name] = t
	}
	return c
}

// Get returns the tool with the given name.
func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// List returns the tools in registration order.
func (c *Catalog) List() []Tool {
	out := make([]Tool, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	return len(c.order)
}
