package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wayfarer-ai/wayfarer/internal/adapter/otel"
	"github.com/wayfarer-ai/wayfarer/internal/config"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/port/broadcast"
	"github.com/wayfarer-ai/wayfarer/internal/port/messagequeue"
	"github.com/wayfarer-ai/wayfarer/internal/port/profile"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

// Scheduler runs the task waves for one turn: it computes which tasks are
// runnable, claims them, dispatches the claims concurrently against the
// external providers, and merges results back into the session state.
type Scheduler struct {
	registry  *taskdef.Registry
	providers provider.Set
	cfg       config.Orchestrator
	hub       broadcast.Broadcaster
	queue     messagequeue.Queue
	metrics   *otel.Metrics
	now       func() time.Time

	// stateMu guards task status transitions and result merges per
	// session, so concurrent Run calls cannot claim the same task twice.
	mu       sync.Mutex
	stateMus map[string]*sync.Mutex
}

// NewScheduler creates a Scheduler over the given task registry and
// provider set. hub, queue and metrics are optional.
func NewScheduler(registry *taskdef.Registry, providers provider.Set, cfg config.Orchestrator) *Scheduler {
	return &Scheduler{
		registry:  registry,
		providers: providers,
		cfg:       cfg,
		now:       time.Now,
		stateMus:  make(map[string]*sync.Mutex),
	}
}

// SetBroadcaster attaches a real-time event sink for task status changes.
func (s *Scheduler) SetBroadcaster(hub broadcast.Broadcaster) { s.hub = hub }

// SetQueue attaches a message queue for task result events.
func (s *Scheduler) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments.
func (s *Scheduler) SetMetrics(m *otel.Metrics) { s.metrics = m }

// Run executes one scheduling round for the session: an initial pass over
// all runnable tasks, then exactly one follow-up pass to pick up tasks whose
// dependencies were satisfied by the first pass. Deeper cascades wait for
// the next turn so a single turn cannot chain unboundedly.
//
// Run mutates st. It never returns an error: every provider failure is
// absorbed into the task's result record.
func (s *Scheduler) Run(ctx context.Context, st *trip.State, prof *profile.Profile) {
	for pass := 0; pass < 2; pass++ {
		if s.runPass(ctx, st, prof) == 0 {
			return
		}
	}
}

// runPass claims and dispatches every currently runnable task, waits for
// all of them, and returns how many were dispatched.
func (s *Scheduler) runPass(ctx context.Context, st *trip.State, prof *profile.Profile) int {
	mu := s.lockFor(st.SessionID)

	mu.Lock()
	runnable := s.registry.Runnable(st, s.now(), s.cfg.RetryCooldown)
	claimed := make([]*taskdef.Descriptor, 0, len(runnable))
	for _, d := range runnable {
		// CAS not_run → running; a concurrent pass that already
		// claimed the task wins and we skip it.
		if st.SetTaskRunning(d.Name) {
			claimed = append(claimed, d)
		}
	}
	fields := st.Fields
	results := make(map[string]json.RawMessage)
	for name, r := range st.TaskResults {
		if r.Status == trip.TaskSucceeded {
			results[name] = r.Payload
		}
	}
	mu.Unlock()

	if len(claimed) == 0 {
		return 0
	}

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxParallel)
	for _, d := range claimed {
		g.Go(func() error {
			s.dispatch(ctx, st, d, fields, results, prof)
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed)
}

// dispatch invokes the provider for one claimed task with a bounded timeout
// and records the outcome. A result arriving after the timeout is discarded:
// the turn has moved on and merging it would write stale data.
func (s *Scheduler) dispatch(ctx context.Context, st *trip.State, d *taskdef.Descriptor, fields trip.Fields, results map[string]json.RawMessage, prof *profile.Profile) {
	ctx, span := otel.StartTaskSpan(ctx, st.SessionID, d.Name)
	defer span.End()

	start := s.now()
	if s.metrics != nil {
		s.metrics.TasksStarted.Add(ctx, 1)
	}

	inv, ok := s.providers[d.Name]
	if !ok {
		s.recordFailure(ctx, st, d.Name, "no provider registered")
		return
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = s.cfg.TaskTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *provider.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := inv.Invoke(callCtx, provider.Request{
			SessionID: st.SessionID,
			Fields:    fields,
			Results:   results,
			Profile:   prof,
		})
		ch <- outcome{res: res, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			s.recordFailure(ctx, st, d.Name, out.err.Error())
			return
		}
		s.recordSuccess(ctx, st, d.Name, out.res)
	case <-callCtx.Done():
		reason := "timeout"
		if errors.Is(callCtx.Err(), context.Canceled) {
			reason = "cancelled"
		}
		s.recordFailure(ctx, st, d.Name, reason)
	}

	if s.metrics != nil {
		s.metrics.TaskDuration.Record(ctx, s.now().Sub(start).Seconds())
	}
}

func (s *Scheduler) recordSuccess(ctx context.Context, st *trip.State, name string, res *provider.Result) {
	mu := s.lockFor(st.SessionID)
	mu.Lock()
	var payload json.RawMessage
	if res != nil {
		payload = res.Payload
	}
	st.SetTaskSucceeded(name, payload)
	if res != nil && res.FieldDeltas != nil {
		ignored := st.ApplyDelta(res.FieldDeltas, s.now())
		if len(ignored) > 0 {
			slog.Warn("task result contained unknown fields",
				"session_id", st.SessionID, "task", name, "ignored", ignored)
		}
	}
	st.UpdatedAt = s.now()
	mu.Unlock()

	if s.metrics != nil {
		s.metrics.TasksSucceed.Add(ctx, 1)
	}
	slog.Info("task succeeded", "session_id", st.SessionID, "task", name)
	s.publishResult(ctx, st.SessionID, name, trip.TaskSucceeded, "")
}

func (s *Scheduler) recordFailure(ctx context.Context, st *trip.State, name, reason string) {
	mu := s.lockFor(st.SessionID)
	mu.Lock()
	st.SetTaskFailed(name, reason, s.now())
	st.UpdatedAt = s.now()
	mu.Unlock()

	if s.metrics != nil {
		s.metrics.TasksFailed.Add(ctx, 1)
	}
	slog.Warn("task failed", "session_id", st.SessionID, "task", name, "reason", reason)
	s.publishResult(ctx, st.SessionID, name, trip.TaskFailed, reason)
}

func (s *Scheduler) publishResult(ctx context.Context, sessionID, task string, status trip.TaskStatus, reason string) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, "task_result", messagequeue.TaskResultPayload{
			SessionID: sessionID,
			Task:      task,
			Status:    string(status),
			Reason:    reason,
		})
	}
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.TaskResultPayload{
		SessionID: sessionID,
		Task:      task,
		Status:    string(status),
		Reason:    reason,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectTaskResult, data); err != nil {
		slog.Warn("publish task result", "session_id", sessionID, "task", task, "error", err)
	}
}

func (s *Scheduler) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.stateMus[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.stateMus[sessionID] = mu
	}
	return mu
}
