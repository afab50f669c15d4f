package taskdef

import (
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

// Runnable returns, in registration order, the tasks that may be dispatched
// right now for the given session state. A task is runnable when:
//
//   - its RunnableWhen predicate holds,
//   - every dependency has succeeded,
//   - the confirmation gate is open if the task requires it, and
//   - the task is not already running or succeeded; a failed task becomes
//     eligible again once its cooldown has elapsed and it has attempts left.
func (r *Registry) Runnable(s *trip.State, now time.Time, cooldown time.Duration) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.order {
		if r.isRunnable(d, s, now, cooldown) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) isRunnable(d *Descriptor, s *trip.State, now time.Time, cooldown time.Duration) bool {
	if !d.RunnableWhen(s) {
		return false
	}
	if d.RequiresConfirmation && !s.Confirmed {
		return false
	}
	for _, dep := range d.DependsOn {
		if s.Task(dep).Status != trip.TaskSucceeded {
			return false
		}
	}

	switch res := s.Task(d.Name); res.Status {
	case trip.TaskRunning, trip.TaskSucceeded:
		return false
	case trip.TaskFailed:
		if res.Attempts >= d.maxAttempts() {
			return false
		}
		return now.Sub(res.FailedAt) >= cooldown
	}
	return true
}

// Phase derives the conversation phase from the session state and the task
// table. It is recomputed on every turn, never stored.
func (r *Registry) Phase(s *trip.State) trip.Phase {
	if len(s.Missing) > 0 {
		return trip.PhaseGathering
	}
	if r.anyOutstanding(s, false) {
		return trip.PhaseDrafting
	}
	if !s.Confirmed {
		return trip.PhaseAwaitingConfirmation
	}
	if r.anyOutstanding(s, true) {
		return trip.PhaseEnriching
	}
	return trip.PhaseComplete
}

// anyOutstanding reports whether any task in the selected wave still has
// work ahead of it: it is running, or it will become runnable once its
// dependencies settle or its retry cooldown elapses. Tasks whose predicate
// does not hold, and tasks blocked behind a terminally failed dependency,
// are not outstanding; they will never run in this session.
func (r *Registry) anyOutstanding(s *trip.State, confirmationWave bool) bool {
	for _, d := range r.order {
		if d.RequiresConfirmation != confirmationWave {
			continue
		}
		if r.isOutstanding(d, s) {
			return true
		}
	}
	return false
}

func (r *Registry) isOutstanding(d *Descriptor, s *trip.State) bool {
	res := s.Task(d.Name)
	if res.Status == trip.TaskRunning {
		return true
	}
	if res.Status == trip.TaskSucceeded {
		return false
	}
	if res.Status == trip.TaskFailed && res.Attempts >= d.maxAttempts() {
		return false
	}
	if !d.RunnableWhen(s) {
		return false
	}
	if d.RequiresConfirmation && !s.Confirmed {
		return false
	}
	for _, dep := range d.DependsOn {
		depDesc := r.byName[dep]
		depRes := s.Task(dep)
		if depRes.Status == trip.TaskFailed && depDesc != nil && depRes.Attempts >= depDesc.maxAttempts() {
			return false
		}
	}
	return true
}
