package pipeline

import (
	"context"
	"fmt"
)

// Stage is one node of a pipeline graph.
//
// A stage declares which stages must finish before it starts, which fields it
// reads and which fields it alone may write. Execute receives a read-only
// snapshot of the run state and returns the values of its declared outputs.
type Stage interface {
	// ID returns the stage identifier, unique within a graph.
	ID() string

	// DependsOn lists the stages that must complete before this one starts.
	DependsOn() []string

	// Inputs lists the fields the stage reads. It is informational; reads of
	// unwritten fields simply yield zero values.
	Inputs() []string

	// Outputs lists the fields only this stage may write.
	Outputs() []string

	// Execute runs the stage. It must honor ctx cancellation on any blocking
	// call it makes.
	Execute(ctx context.Context, in View) (Outputs, error)
}

// FuncStage adapts a function to the Stage interface.
type FuncStage struct {
	Name   string
	Deps   []string
	Reads  []string
	Writes []string
	Fn     func(ctx context.Context, in View) (Outputs, error)
}

func (s *FuncStage) ID() string          { return s.Name }
func (s *FuncStage) DependsOn() []string { return s.Deps }
func (s *FuncStage) Inputs() []string    { return s.Reads }
func (s *FuncStage) Outputs() []string   { return s.Writes }

// Execute calls Fn. A FuncStage without Fn produces no outputs.
func (s *FuncStage) Execute(ctx context.Context, in View) (Outputs, error) {
	if s.Fn == nil {
		return nil, nil
	}
	return s.Fn(ctx, in)
}

// Factory constructs a Stage.
type Factory func() (Stage, error)

// Registry is a static registration table of stage factories. Graphs are
// assembled from it by stage ID instead of through type hierarchies.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under id. Registering the same id twice is an error.
func (r *Registry) Register(id string, f Factory) error {
	if id == "" {
		return fmt.Errorf("pipeline: register: empty stage id")
	}
	if f == nil {
		return fmt.Errorf("pipeline: register %q: nil factory", id)
	}
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("pipeline: register %q: already registered", id)
	}
	r.factories[id] = f
	r.order = append(r.order, id)
	return nil
}

// IDs returns the registered stage IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Build instantiates the named stages (all of them, in registration order,
// when ids is empty) and validates them into a Graph.
func (r *Registry) Build(ids ...string) (*Graph, error) {
	if len(ids) == 0 {
		ids = r.order
	}

	stages := make([]Stage, 0, len(ids))
	for _, id := range ids {
		f, ok := r.factories[id]
		if !ok {
			return nil, invalidf("stage %q is not registered", id)
		}
		st, err := f()
		if err != nil {
			return nil, fmt.Errorf("pipeline: build stage %q: %w", id, err)
		}
		if st == nil {
			return nil, invalidf("factory for %q returned a nil stage", id)
		}
		if st.ID() != id {
			return nil, invalidf("factory registered as %q built stage %q", id, st.ID())
		}
		stages = append(stages, st)
	}
	return NewGraph(stages...)
}
