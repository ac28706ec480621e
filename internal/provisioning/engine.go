package provisioning

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/state"
)

// Phase names used in events and metrics.
const (
	PhaseApply   = "apply"
	PhaseDestroy = "destroy"
	PhaseRefresh = "refresh"
)

// ErrStalePlan is returned by Apply when the state changed after planning.
var ErrStalePlan = errors.New("state changed since the plan was computed, run preview again")

// OutputFunc computes the stack outputs from state.
type OutputFunc func(s *state.State) map[string]string

// Engine plans and executes changes to a stack.
type Engine struct {
	backend  state.Backend
	handlers map[string]Handler
	observer Observer
	metrics  *Metrics
	outputs  OutputFunc
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the event observer. The default discards events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithOutputs sets the function computing stack outputs after each run.
func WithOutputs(fn OutputFunc) Option {
	return func(e *Engine) { e.outputs = fn }
}

// NewEngine creates an engine storing state in backend. handlers maps a
// resource kind to its handler.
func NewEngine(backend state.Backend, handlers map[string]Handler, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		handlers: handlers,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes a run.
type Result struct {
	State  *state.State
	Counts map[Action]int
}

// Load returns the current state.
func (e *Engine) Load(ctx context.Context) (*state.State, error) {
	st, err := e.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state from %s: %w", e.backend, err)
	}
	return st, nil
}

// WithLock runs fn while holding the stack lock.
func (e *Engine) WithLock(ctx context.Context, operation string, fn func(ctx context.Context) error) (err error) {
	if err := e.backend.Lock(ctx, operation); err != nil {
		return fmt.Errorf("failed to lock state: %w", err)
	}
	defer func() {
		// Unlock even when ctx was cancelled.
		if uerr := e.backend.Unlock(context.WithoutCancel(ctx)); uerr != nil {
			e.observer.Printf("failed to unlock state: %v", uerr)
			if err == nil {
				err = fmt.Errorf("failed to unlock state: %w", uerr)
			}
		}
	}()
	return fn(ctx)
}

// PurgeState removes the stored state and its backup. It refuses while state
// still records resources, so run Destroy first.
func (e *Engine) PurgeState(ctx context.Context) error {
	st, err := e.Load(ctx)
	if err != nil {
		return err
	}
	if !st.Empty() {
		return fmt.Errorf("state of stack %s still holds %d resources", st.Stack, len(st.Resources))
	}
	if err := e.backend.Delete(ctx); err != nil {
		return err
	}
	e.observer.Printf("Removed state %s", e.backend)
	return nil
}

// Plan computes the steps needed to reach the declared resources.
func (e *Engine) Plan(ctx context.Context, desired []Desired) (*Plan, error) {
	st, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return buildPlan(desired, st, e.handlers)
}

// Apply executes a plan. Deletions, including the delete half of every
// replacement, run first in reverse dependency order. Creations and updates
// follow in dependency order. State is saved after every step, so a failed
// run can be resumed by planning again.
func (e *Engine) Apply(ctx context.Context, p *Plan) (res *Result, err error) {
	start := e.now()
	LogPhaseStart(e.observer, PhaseApply)

	st, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { e.finish(PhaseApply, st, start, err) }()

	if st.Serial != p.Serial {
		return nil, fmt.Errorf("%w (planned at serial %d, state is at %d)", ErrStalePlan, p.Serial, st.Serial)
	}

	res = &Result{State: st, Counts: map[Action]int{}}

	removals := map[graph.ID]bool{}
	for _, s := range p.Steps {
		if s.Action == ActionDelete || s.Action == ActionReplace {
			removals[s.ID] = true
		}
	}
	for _, id := range p.priorOrder {
		if !removals[id] {
			continue
		}
		if err := e.deleteResource(ctx, PhaseApply, st, id); err != nil {
			return res, err
		}
		if p.Step(id).Action == ActionDelete {
			res.Counts[ActionDelete]++
		}
	}

	for _, id := range p.desired.TopoOrder() {
		step := p.Step(id)
		switch step.Action {
		case ActionCreate, ActionReplace:
			if err := e.createResource(ctx, st, step.desired); err != nil {
				return res, err
			}
		case ActionUpdate:
			if err := e.updateResource(ctx, st, step.desired); err != nil {
				return res, err
			}
		case ActionNoop:
			if err := e.syncDependencies(ctx, st, step.desired); err != nil {
				return res, err
			}
			LogResourceUnchanged(e.observer, PhaseApply, id.String())
		}
		res.Counts[step.Action]++
	}

	if err := e.saveOutputs(ctx, st); err != nil {
		return res, err
	}
	return res, nil
}

// Destroy deletes every resource in state in reverse dependency order. It
// stops at the first failure, leaving the remaining resources in state.
func (e *Engine) Destroy(ctx context.Context) (res *Result, err error) {
	start := e.now()
	LogPhaseStart(e.observer, PhaseDestroy)

	st, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { e.finish(PhaseDestroy, st, start, err) }()

	res = &Result{State: st, Counts: map[Action]int{}}
	order := stateDeleteOrder(st)
	for i, id := range order {
		e.observer.Progress(PhaseDestroy, i, len(order))
		if err := e.deleteResource(ctx, PhaseDestroy, st, id); err != nil {
			return res, err
		}
		res.Counts[ActionDelete]++
	}

	st.Outputs = nil
	if err := e.save(ctx, st); err != nil {
		return res, err
	}
	return res, nil
}

// RefreshReport lists what a refresh changed in state.
type RefreshReport struct {
	State   *state.State
	Gone    []graph.ID
	Changed []graph.ID
}

// Refresh reads every resource from the provider. Resources that no longer
// exist are dropped from state and changed outputs are recorded.
func (e *Engine) Refresh(ctx context.Context) (rep *RefreshReport, err error) {
	start := e.now()
	LogPhaseStart(e.observer, PhaseRefresh)

	st, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { e.finish(PhaseRefresh, st, start, err) }()

	rep = &RefreshReport{State: st}
	order := stateDeleteOrder(st)
	slices.Reverse(order)
	for _, id := range order {
		r := st.Get(id)
		h, err := e.handler(id)
		if err != nil {
			return rep, err
		}

		opStart := e.now()
		outputs, exists, err := h.Read(ctx, e.request(st, r.Properties, nil, r.Dependencies(), r))
		e.metrics.recordOperation(id.Kind, "read", opStart, err)
		if err != nil {
			return rep, fmt.Errorf("failed to read %s: %w", id, err)
		}

		switch {
		case !exists:
			LogResourceGone(e.observer, PhaseRefresh, id.String())
			st.Remove(id)
			rep.Gone = append(rep.Gone, id)
		case !maps.Equal(outputs, r.Outputs):
			r.Outputs = outputs
			r.UpdatedAt = e.now().UTC()
			rep.Changed = append(rep.Changed, id)
		default:
			LogResourceUnchanged(e.observer, PhaseRefresh, id.String())
		}
	}

	if len(rep.Gone) == 0 && len(rep.Changed) == 0 {
		return rep, nil
	}
	if err := e.saveOutputs(ctx, st); err != nil {
		return rep, err
	}
	return rep, nil
}

func (e *Engine) handler(id graph.ID) (Handler, error) {
	h, ok := e.handlers[id.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported resource kind %q", id, id.Kind)
	}
	return h, nil
}

// request builds a handler request, resolving dependencies from st.
func (e *Engine) request(st *state.State, props, payload map[string]string, deps []graph.ID, prior *state.Resource) *Request {
	req := &Request{
		Properties: props,
		Payload:    payload,
		Deps:       make(map[string]*state.Resource, len(deps)),
		Prior:      prior,
		Log:        e.observer,
	}
	if prior != nil {
		req.ID = prior.GraphID()
	}
	for _, dep := range deps {
		if r := st.Get(dep); r != nil {
			c := r.Clone()
			req.Deps[dep.String()] = &c
		}
	}
	return req
}

func (e *Engine) deleteResource(ctx context.Context, phase string, st *state.State, id graph.ID) error {
	r := st.Get(id)
	if r == nil {
		return nil
	}
	h, err := e.handler(id)
	if err != nil {
		return err
	}

	prior := r.Clone()
	LogResourceStart(e.observer, phase, ActionDelete, id.String())
	opStart := e.now()
	err = h.Delete(ctx, e.request(st, prior.Properties, nil, prior.Dependencies(), &prior))
	e.metrics.recordOperation(id.Kind, ActionDelete, opStart, err)
	if err != nil {
		LogResourceFailed(e.observer, phase, ActionDelete, id.String(), err)
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	LogResourceDone(e.observer, phase, ActionDelete, id.String(), e.now().Sub(opStart))

	st.Remove(id)
	return e.save(ctx, st)
}

func (e *Engine) createResource(ctx context.Context, st *state.State, d *Desired) error {
	h, err := e.handler(d.ID)
	if err != nil {
		return err
	}

	req := e.request(st, d.Properties, d.Payload, d.DependsOn, nil)
	req.ID = d.ID

	LogResourceStart(e.observer, PhaseApply, ActionCreate, d.ID.String())
	opStart := e.now()
	outputs, err := h.Create(ctx, req)
	e.metrics.recordOperation(d.ID.Kind, ActionCreate, opStart, err)
	if err != nil {
		LogResourceFailed(e.observer, PhaseApply, ActionCreate, d.ID.String(), err)
		return fmt.Errorf("failed to create %s: %w", d.ID, err)
	}
	LogResourceDone(e.observer, PhaseApply, ActionCreate, d.ID.String(), e.now().Sub(opStart))

	now := e.now().UTC()
	st.Put(state.Resource{
		Kind:       d.ID.Kind,
		Name:       d.ID.Name,
		Properties: maps.Clone(d.Properties),
		Outputs:    outputs,
		DependsOn:  dependsOn(d),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return e.save(ctx, st)
}

func (e *Engine) updateResource(ctx context.Context, st *state.State, d *Desired) error {
	h, err := e.handler(d.ID)
	if err != nil {
		return err
	}

	prior := st.Get(d.ID).Clone()
	req := e.request(st, d.Properties, d.Payload, d.DependsOn, &prior)

	LogResourceStart(e.observer, PhaseApply, ActionUpdate, d.ID.String())
	opStart := e.now()
	outputs, err := h.Update(ctx, req)
	e.metrics.recordOperation(d.ID.Kind, ActionUpdate, opStart, err)
	if err != nil {
		LogResourceFailed(e.observer, PhaseApply, ActionUpdate, d.ID.String(), err)
		return fmt.Errorf("failed to update %s: %w", d.ID, err)
	}
	LogResourceDone(e.observer, PhaseApply, ActionUpdate, d.ID.String(), e.now().Sub(opStart))

	prior.Properties = maps.Clone(d.Properties)
	prior.Outputs = outputs
	prior.DependsOn = dependsOn(d)
	prior.UpdatedAt = e.now().UTC()
	st.Put(prior)
	return e.save(ctx, st)
}

// syncDependencies records changed dependency hints of an unchanged resource.
func (e *Engine) syncDependencies(ctx context.Context, st *state.State, d *Desired) error {
	r := st.Get(d.ID)
	deps := dependsOn(d)
	if r == nil || slices.Equal(r.DependsOn, deps) {
		return nil
	}
	r.DependsOn = deps
	return e.save(ctx, st)
}

func (e *Engine) saveOutputs(ctx context.Context, st *state.State) error {
	if e.outputs != nil {
		st.Outputs = e.outputs(st)
	}
	return e.save(ctx, st)
}

func (e *Engine) save(ctx context.Context, st *state.State) error {
	// A cancelled run still records what it already did.
	if err := e.backend.Save(context.WithoutCancel(ctx), st); err != nil {
		return fmt.Errorf("failed to save state to %s: %w", e.backend, err)
	}
	return nil
}

func (e *Engine) finish(phase string, st *state.State, start time.Time, err error) {
	n := 0
	if st != nil {
		n = len(st.Resources)
	}
	stack := ""
	if st != nil {
		stack = st.Stack
	}
	e.metrics.recordRun(stack, phase, start, n, err)
	if err != nil {
		LogPhaseFailed(e.observer, phase, err)
		return
	}
	LogPhaseComplete(e.observer, phase, e.now().Sub(start))
}

func dependsOn(d *Desired) []string {
	out := make([]string, len(d.DependsOn))
	for i, dep := range d.DependsOn {
		out[i] = dep.String()
	}
	return out
}
