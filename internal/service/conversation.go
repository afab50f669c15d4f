package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-ai/wayfarer/internal/adapter/otel"
	"github.com/wayfarer-ai/wayfarer/internal/domain"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/logger"
	"github.com/wayfarer-ai/wayfarer/internal/port/broadcast"
	"github.com/wayfarer-ai/wayfarer/internal/port/extractor"
	"github.com/wayfarer-ai/wayfarer/internal/port/messagequeue"
	"github.com/wayfarer-ai/wayfarer/internal/port/profile"
	"github.com/wayfarer-ai/wayfarer/internal/port/session"
)

// TurnResult is what every intake call returns: the derived conversation
// phase plus a snapshot of the session state. FailedTasks lets the caller
// flag partial results without digging through task_results.
type TurnResult struct {
	TurnID      string      `json:"turn_id,omitempty"`
	Phase       trip.Phase  `json:"phase"`
	State       *trip.State `json:"state"`
	FailedTasks []string    `json:"failed_tasks,omitempty"`
}

// ConversationService is the per-turn entry point. It serializes turns per
// session, runs extraction, merges the delta, schedules whatever became
// runnable, and derives the conversation phase for the caller.
type ConversationService struct {
	store     session.Store
	profiles  profile.Store
	extract   extractor.Extractor
	scheduler *Scheduler
	registry  *taskdef.Registry
	locks     *sessionLocks
	queue     messagequeue.Queue
	hub       broadcast.Broadcaster
	metrics   *otel.Metrics
	now       func() time.Time
}

// NewConversationService creates the turn controller. profiles may be nil
// when no profile store is configured; queue, hub and metrics are optional.
func NewConversationService(
	store session.Store,
	profiles profile.Store,
	extract extractor.Extractor,
	scheduler *Scheduler,
	registry *taskdef.Registry,
) *ConversationService {
	return &ConversationService{
		store:     store,
		profiles:  profiles,
		extract:   extract,
		scheduler: scheduler,
		registry:  registry,
		locks:     newSessionLocks(),
		now:       time.Now,
	}
}

// SetQueue attaches a message queue for session lifecycle events.
func (s *ConversationService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster attaches a real-time event sink.
func (s *ConversationService) SetBroadcaster(hub broadcast.Broadcaster) { s.hub = hub }

// SetMetrics attaches metric instruments.
func (s *ConversationService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// HandleTurn processes one user message for the session. identity, when
// non-empty, selects the traveller profile passed read-only to providers.
//
// Only two things fail a turn: the session store and lock contention.
// Extraction errors degrade to an empty delta, provider failures are
// absorbed into task results, and unknown delta fields are dropped with a
// warning.
func (s *ConversationService) HandleTurn(ctx context.Context, sessionID, userText, identity string) (*TurnResult, error) {
	if !s.locks.acquire(sessionID) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionBusy)
	}
	defer s.locks.release(sessionID)

	turnID := uuid.NewString()
	ctx = logger.WithSessionID(ctx, sessionID)
	ctx, span := otel.StartTurnSpan(ctx, sessionID, turnID)
	defer span.End()
	start := s.now()

	st, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	phase := s.registry.Phase(st)
	if phase.Accepting() {
		s.mergeExtraction(ctx, st, userText)
	} else {
		// Post-confirmation corrections do not reopen gathering; the
		// turn still runs the scheduler so retries make progress.
		slog.Info("session no longer accepts requirement changes, ignoring message text",
			"session_id", sessionID, "phase", phase)
	}

	prof := s.lookupProfile(ctx, identity)
	s.scheduler.Run(ctx, st, prof)

	phase = s.registry.Phase(st)
	if err := s.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	res := &TurnResult{
		TurnID:      turnID,
		Phase:       phase,
		State:       st,
		FailedTasks: st.FailedTasks(),
	}
	s.afterTurn(ctx, res, start)
	return res, nil
}

// Confirm flips the confirmation gate for the session and immediately runs
// the scheduler so the compliance wave starts without waiting for another
// user message. Confirm is the only writer of the confirmed flag.
func (s *ConversationService) Confirm(ctx context.Context, sessionID, identity string) (*TurnResult, error) {
	if !s.locks.acquire(sessionID) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionBusy)
	}
	defer s.locks.release(sessionID)

	ctx = logger.WithSessionID(ctx, sessionID)

	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	// Confirming before the draft is ready would skip the planning wave
	// entirely; re-confirming an already confirmed session stays a no-op.
	if phase := s.registry.Phase(st); !st.Confirmed && phase != trip.PhaseAwaitingConfirmation {
		return nil, fmt.Errorf("confirm session %s in phase %s: %w", sessionID, phase, domain.ErrConflict)
	}

	st.Confirm(s.now())
	s.scheduler.Run(ctx, st, s.lookupProfile(ctx, identity))

	phase := s.registry.Phase(st)
	if err := s.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	if s.metrics != nil {
		s.metrics.Confirmations.Add(ctx, 1)
	}
	slog.Info("session confirmed", "session_id", sessionID, "phase", phase)
	s.publish(ctx, messagequeue.SubjectSessionConfirmed, messagequeue.SessionConfirmedPayload{
		SessionID: sessionID,
		Phase:     string(phase),
	})
	if phase == trip.PhaseComplete {
		s.publish(ctx, messagequeue.SubjectSessionComplete, messagequeue.SessionCompletePayload{
			SessionID: sessionID,
		})
	}

	return &TurnResult{
		Phase:       phase,
		State:       st,
		FailedTasks: st.FailedTasks(),
	}, nil
}

// Get returns the current phase and state snapshot without running a turn.
func (s *ConversationService) Get(ctx context.Context, sessionID string) (*TurnResult, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return &TurnResult{
		Phase:       s.registry.Phase(st),
		State:       st,
		FailedTasks: st.FailedTasks(),
	}, nil
}

func (s *ConversationService) loadOrCreate(ctx context.Context, sessionID string) (*trip.State, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return trip.NewState(sessionID, s.now()), nil
	}
	return nil, fmt.Errorf("load session %s: %w", sessionID, err)
}

// mergeExtraction runs the extractor and merges its delta. The extractor is
// untrusted: an error or timeout means this turn simply learns nothing new,
// and unknown fields in its delta are dropped.
func (s *ConversationService) mergeExtraction(ctx context.Context, st *trip.State, userText string) {
	ext, err := s.extract.Extract(ctx, userText, st)
	if err != nil {
		slog.Warn("extraction failed, proceeding with empty delta",
			"session_id", st.SessionID, "error", err)
		return
	}
	if ext == nil || len(ext.Delta) == 0 {
		return
	}
	ignored := st.ApplyDelta(ext.Delta, s.now())
	if len(ignored) > 0 {
		slog.Warn("extractor returned unknown fields",
			"session_id", st.SessionID, "ignored", ignored)
	}
}

// lookupProfile resolves the traveller profile for dispatch context. A
// missing or failing profile store degrades to anonymous dispatch.
func (s *ConversationService) lookupProfile(ctx context.Context, identity string) *profile.Profile {
	if identity == "" || s.profiles == nil {
		return nil
	}
	prof, err := s.profiles.Lookup(ctx, identity)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("profile lookup failed", "identity", identity, "error", err)
		}
		return nil
	}
	return prof
}

func (s *ConversationService) afterTurn(ctx context.Context, res *TurnResult, start time.Time) {
	if s.metrics != nil {
		s.metrics.TurnsHandled.Add(ctx, 1)
		s.metrics.TurnDuration.Record(ctx, s.now().Sub(start).Seconds())
	}
	slog.Info("turn completed",
		"session_id", res.State.SessionID,
		"turn_id", res.TurnID,
		"phase", res.Phase,
		"missing", res.State.Missing,
		"failed_tasks", res.FailedTasks,
	)
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, "turn_completed", messagequeue.TurnCompletedPayload{
			SessionID:   res.State.SessionID,
			TurnID:      res.TurnID,
			Phase:       string(res.Phase),
			Missing:     res.State.Missing,
			FailedTasks: res.FailedTasks,
		})
	}
	s.publish(ctx, messagequeue.SubjectTurnCompleted, messagequeue.TurnCompletedPayload{
		SessionID:   res.State.SessionID,
		TurnID:      res.TurnID,
		Phase:       string(res.Phase),
		Missing:     res.State.Missing,
		FailedTasks: res.FailedTasks,
	})
	if res.Phase == trip.PhaseComplete {
		s.publish(ctx, messagequeue.SubjectSessionComplete, messagequeue.SessionCompletePayload{
			SessionID: res.State.SessionID,
		})
	}
}

func (s *ConversationService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish session event", "subject", subject, "error", err)
	}
}
