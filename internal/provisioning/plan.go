package provisioning

import (
	"fmt"
	"maps"
	"slices"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/state"
)

// Action is what the engine does with one resource.
type Action string

const (
	ActionNoop    Action = "noop"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionReplace Action = "replace"
	ActionDelete  Action = "delete"
)

// Change is one property difference between state and the declaration.
type Change struct {
	Key      string
	Old      string
	New      string
	ForceNew bool
}

// Step is the planned action for one resource.
type Step struct {
	ID      graph.ID
	Action  Action
	Changes []Change
	// Reason explains replacements and updates caused by dependencies.
	Reason string

	desired *Desired
	prior   *state.Resource
}

// Plan is the ordered set of steps that moves state to the declaration.
// Steps for declared resources come first in dependency order, followed by
// deletions of undeclared resources in reverse dependency order.
type Plan struct {
	Stack string
	// Serial is the state serial the plan was computed against.
	Serial int64
	Steps  []Step

	desired *graph.Graph
	// priorOrder is the reverse dependency order of the prior state.
	priorOrder []graph.ID
}

// Counts returns the number of steps per action.
func (p *Plan) Counts() map[Action]int {
	counts := map[Action]int{}
	for _, s := range p.Steps {
		counts[s.Action]++
	}
	return counts
}

// HasChanges reports whether applying the plan would change anything.
func (p *Plan) HasChanges() bool {
	for _, s := range p.Steps {
		if s.Action != ActionNoop {
			return true
		}
	}
	return false
}

// Step returns the step for a resource, or nil.
func (p *Plan) Step(id graph.ID) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// BuildGraph validates the declarations and returns their dependency graph.
func BuildGraph(desired []Desired) (*graph.Graph, error) {
	nodes := make([]graph.Node, 0, len(desired))
	for i := range desired {
		if err := desired[i].validate(); err != nil {
			return nil, err
		}
		nodes = append(nodes, graph.Node{ID: desired[i].ID, DependsOn: desired[i].DependsOn})
	}
	return graph.New(nodes)
}

// buildPlan diffs the declarations against the prior state.
func buildPlan(desired []Desired, prior *state.State, handlers map[string]Handler) (*Plan, error) {
	g, err := BuildGraph(desired)
	if err != nil {
		return nil, err
	}

	byID := make(map[graph.ID]*Desired, len(desired))
	for i := range desired {
		d := &desired[i]
		if _, ok := handlers[d.ID.Kind]; !ok {
			return nil, fmt.Errorf("%s: unsupported resource kind %q", d.ID, d.ID.Kind)
		}
		byID[d.ID] = d
	}

	p := &Plan{
		Stack:      prior.Stack,
		Serial:     prior.Serial,
		desired:    g,
		priorOrder: stateDeleteOrder(prior),
	}

	actions := make(map[graph.ID]Action, len(desired))
	for _, id := range g.TopoOrder() {
		d := byID[id]
		h := handlers[id.Kind]
		step := planStep(d, prior.Get(id), h.ForceNew(), actions)
		if v, ok := h.(ChangeValidator); ok && step.Action == ActionUpdate {
			if err := v.ValidateChange(id, step.prior.Properties, d.Properties); err != nil {
				return nil, fmt.Errorf("%s: %w", id, err)
			}
		}
		actions[id] = step.Action
		p.Steps = append(p.Steps, step)
	}

	for _, id := range p.priorOrder {
		if g.Has(id) {
			continue
		}
		r := prior.Get(id)
		if _, ok := handlers[id.Kind]; !ok {
			return nil, fmt.Errorf("%s: unsupported resource kind %q in state", id, id.Kind)
		}
		p.Steps = append(p.Steps, Step{
			ID:      id,
			Action:  ActionDelete,
			Changes: diffProperties(r.Properties, nil, nil),
			prior:   r,
		})
	}

	return p, nil
}

func planStep(d *Desired, r *state.Resource, forceNew []string, actions map[graph.ID]Action) Step {
	step := Step{ID: d.ID, desired: d, prior: r}

	if r == nil {
		step.Action = ActionCreate
		step.Changes = diffProperties(nil, d.Properties, nil)
		return step
	}

	step.Changes = diffProperties(r.Properties, d.Properties, forceNew)
	for _, c := range step.Changes {
		if c.ForceNew {
			step.Action = ActionReplace
			return step
		}
	}

	for _, dep := range d.ReplaceWith {
		if a := actions[dep]; a == ActionCreate || a == ActionReplace {
			step.Action = ActionReplace
			step.Reason = fmt.Sprintf("%s will be %sd", dep, a)
			return step
		}
	}

	if len(step.Changes) > 0 {
		step.Action = ActionUpdate
		return step
	}

	for _, dep := range d.UpdateWith {
		if a := actions[dep]; a == ActionCreate || a == ActionReplace {
			step.Action = ActionUpdate
			step.Reason = fmt.Sprintf("%s will be %sd", dep, a)
			return step
		}
	}

	step.Action = ActionNoop
	return step
}

// diffProperties returns the changed keys in sorted order.
func diffProperties(old, updated map[string]string, forceNew []string) []Change {
	keys := map[string]struct{}{}
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range updated {
		keys[k] = struct{}{}
	}

	var changes []Change
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		o, n := old[k], updated[k]
		if o == n {
			continue
		}
		changes = append(changes, Change{
			Key:      k,
			Old:      o,
			New:      n,
			ForceNew: slices.Contains(forceNew, k),
		})
	}
	return changes
}

// stateDeleteOrder returns the resources in state ordered so that every
// resource comes before the resources it depends on. Dependencies on
// resources no longer in state are ignored. A corrupt graph falls back to
// reverse state order.
func stateDeleteOrder(s *state.State) []graph.ID {
	nodes := make([]graph.Node, 0, len(s.Resources))
	for i := range s.Resources {
		r := &s.Resources[i]
		var deps []graph.ID
		for _, dep := range r.Dependencies() {
			if s.Get(dep) != nil && !slices.Contains(deps, dep) {
				deps = append(deps, dep)
			}
		}
		nodes = append(nodes, graph.Node{ID: r.GraphID(), DependsOn: deps})
	}

	g, err := graph.New(nodes)
	if err != nil {
		ids := s.IDs()
		slices.Reverse(ids)
		return ids
	}
	return g.ReverseOrder()
}
