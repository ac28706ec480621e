package provisioning

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/state"
)

// Desired is one declared resource.
type Desired struct {
	ID graph.ID
	// Properties are the persisted inputs the diff is computed on.
	Properties map[string]string
	// Payload holds inputs that are passed to the handler but never persisted,
	// such as rendered user data or key material.
	Payload   map[string]string
	DependsOn []graph.ID
	// ReplaceWith lists dependencies whose creation or replacement forces
	// this resource to be replaced.
	ReplaceWith []graph.ID
	// UpdateWith lists dependencies whose replacement triggers an in-place
	// update of this resource.
	UpdateWith []graph.ID
}

func (d *Desired) validate() error {
	for _, dep := range slices.Concat(d.ReplaceWith, d.UpdateWith) {
		if !slices.Contains(d.DependsOn, dep) {
			return fmt.Errorf("%s: %s is not a dependency", d.ID, dep)
		}
	}
	return nil
}

// Request is what a handler receives for one operation.
type Request struct {
	ID         graph.ID
	Properties map[string]string
	Payload    map[string]string
	// Deps holds the current state of every dependency, keyed by "kind/name".
	Deps map[string]*state.Resource
	// Prior is the resource as recorded in state. It is nil on create.
	Prior *state.Resource
	// Log receives progress messages from the handler.
	Log Logger
}

// Dep returns the first dependency of the given kind, or nil.
func (r *Request) Dep(kind string) *state.Resource {
	for _, key := range slices.Sorted(maps.Keys(r.Deps)) {
		if d := r.Deps[key]; d != nil && d.Kind == kind {
			return d
		}
	}
	return nil
}

// Handler manages one resource kind.
type Handler interface {
	// ForceNew lists the properties whose change requires replacement.
	ForceNew() []string
	// Create creates the resource and returns its outputs.
	Create(ctx context.Context, req *Request) (map[string]string, error)
	// Update changes the resource in place and returns its new outputs.
	Update(ctx context.Context, req *Request) (map[string]string, error)
	// Delete removes the resource. Deleting a missing resource is not an error.
	Delete(ctx context.Context, req *Request) error
	// Read returns the current outputs, or exists=false when the resource is gone.
	Read(ctx context.Context, req *Request) (outputs map[string]string, exists bool, err error)
}

// ChangeValidator is implemented by handlers that refuse some in-place
// updates. It is called while planning, so a refused update fails the plan
// before any resource is touched.
type ChangeValidator interface {
	ValidateChange(id graph.ID, old, updated map[string]string) error
}
