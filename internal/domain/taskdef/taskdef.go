// Package taskdef declares the static registry of retrieval and enrichment
// tasks the scheduler can dispatch, together with the rules deciding when
// each task is runnable for a given session state.
package taskdef

import (
	"fmt"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

// DefaultMaxAttempts bounds how often a persistently failing task is retried
// across turns before it is treated as terminally failed.
const DefaultMaxAttempts = 3

// Predicate decides whether a task is runnable for the given session state.
// Predicates must be pure: no I/O, no mutation.
type Predicate func(*trip.State) bool

// Descriptor is the static declaration of one schedulable task.
type Descriptor struct {
	// Name uniquely identifies the task; it doubles as the provider key
	// and the task_results key.
	Name string

	// Group names the concurrency group. Tasks sharing a group are
	// expected to run in parallel; ordering across groups comes only from
	// dependency edges.
	Group string

	// RunnableWhen gates the task on the session state.
	RunnableWhen Predicate

	// DependsOn lists task names that must have succeeded first.
	DependsOn []string

	// RequiresConfirmation locks the task behind the confirmation gate.
	RequiresConfirmation bool

	// MaxAttempts overrides DefaultMaxAttempts when > 0.
	MaxAttempts int

	// Timeout overrides the scheduler's default per-task timeout when > 0.
	Timeout time.Duration
}

func (d *Descriptor) maxAttempts() int {
	if d.MaxAttempts > 0 {
		return d.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Registry holds the declared tasks in registration order.
type Registry struct {
	order []*Descriptor
	byName map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. It rejects duplicate names, missing
// predicates, and dependency edges to tasks that are not yet registered, so
// registration order doubles as a cycle check.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("register task: name is required")
	}
	if d.RunnableWhen == nil {
		return fmt.Errorf("register task %s: RunnableWhen is required", d.Name)
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("register task %s: duplicate name", d.Name)
	}
	for _, dep := range d.DependsOn {
		if _, ok := r.byName[dep]; !ok {
			return fmt.Errorf("register task %s: unknown dependency %s", d.Name, dep)
		}
	}
	r.order = append(r.order, d)
	r.byName[d.Name] = d
	return nil
}

// MustRegister is Register for static task tables; it panics on error.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get returns the descriptor for name, or nil when unknown.
func (r *Registry) Get(name string) *Descriptor {
	return r.byName[name]
}

// All returns the descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}
