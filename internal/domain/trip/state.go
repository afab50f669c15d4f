// Package trip defines the per-session requirement state for a travel
// planning conversation: what is known about the trip, which retrieval
// tasks have run, and whether the traveller has confirmed the draft.
package trip

import (
	"encoding/json"
	"slices"
	"time"
)

// TaskStatus represents the execution state of a single retrieval task
// within a session.
type TaskStatus string

const (
	TaskNotRun    TaskStatus = "not_run"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskResult holds the last outcome of a task for one session. The payload
// is opaque to the orchestrator; only the provider and the renderer
// understand it.
type TaskResult struct {
	Status   TaskStatus      `json:"status"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Attempts int             `json:"attempts,omitempty"`
	FailedAt time.Time       `json:"failed_at,omitzero"`
}

// Fields is the accumulating record of trip requirements. Pointer fields
// distinguish "never stated" from an explicit zero value. SpecialRequirements
// uses nil-vs-empty for the same distinction: a non-nil empty slice means the
// traveller explicitly has none.
type Fields struct {
	Destination         *string  `json:"destination,omitempty"`
	DestinationType     *string  `json:"destination_type,omitempty"`
	EventName           *string  `json:"event_name,omitempty"`
	EventType           *string  `json:"event_type,omitempty"`
	DepartureDate       *string  `json:"departure_date,omitempty"` // YYYY-MM-DD
	ReturnDate          *string  `json:"return_date,omitempty"`    // YYYY-MM-DD
	Duration            *int     `json:"duration,omitempty"`       // days
	Budget              *float64 `json:"budget,omitempty"`
	BudgetCurrency      *string  `json:"budget_currency,omitempty"`
	Passengers          *int     `json:"passengers,omitempty"`
	Children            *int     `json:"children,omitempty"`
	TravelClass         *string  `json:"travel_class,omitempty"`
	AccommodationType   *string  `json:"accommodation_type,omitempty"`
	SpecialRequirements []string `json:"special_requirements"`

	// Populated by task field deltas, not by the extractor.
	EnhancedOffers json.RawMessage `json:"enhanced_offers,omitempty"`
	CuratedFlights json.RawMessage `json:"curated_flights,omitempty"`
}

// RequiredFields lists, in reporting order, the fields that must be present
// before the search wave can run.
var RequiredFields = []string{
	"destination",
	"departure_date",
	"duration",
	"budget",
	"passengers",
	"travel_class",
}

// State is the durable orchestration state for one conversation session.
type State struct {
	SessionID   string                 `json:"session_id"`
	Fields      Fields                 `json:"fields"`
	Missing     []string               `json:"missing"`
	TaskResults map[string]*TaskResult `json:"task_results"`
	Confirmed   bool                   `json:"confirmed"`
	ConfirmedAt time.Time              `json:"confirmed_at,omitzero"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewState creates an empty session state. Every required field starts out
// missing.
func NewState(sessionID string, now time.Time) *State {
	s := &State{
		SessionID:   sessionID,
		TaskResults: make(map[string]*TaskResult),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Missing = s.Fields.MissingRequired()
	return s
}

// Task returns the result record for the named task, defaulting to
// TaskNotRun when the task has never been dispatched.
func (s *State) Task(name string) TaskResult {
	if r, ok := s.TaskResults[name]; ok {
		return *r
	}
	return TaskResult{Status: TaskNotRun}
}

// SetTaskRunning transitions the named task not_run→running. It returns
// false without modifying the state when the task is already running or has
// already succeeded, which is what enforces at-most-one-in-flight per task
// per session.
func (s *State) SetTaskRunning(name string) bool {
	r, ok := s.TaskResults[name]
	if !ok {
		r = &TaskResult{Status: TaskNotRun}
		s.TaskResults[name] = r
	}
	if r.Status == TaskRunning || r.Status == TaskSucceeded {
		return false
	}
	r.Status = TaskRunning
	r.Attempts++
	return true
}

// SetTaskSucceeded records a successful result payload for the named task.
func (s *State) SetTaskSucceeded(name string, payload json.RawMessage) {
	r, ok := s.TaskResults[name]
	if !ok {
		r = &TaskResult{}
		s.TaskResults[name] = r
	}
	r.Status = TaskSucceeded
	r.Payload = payload
	r.Reason = ""
}

// SetTaskFailed records a failure. The previous payload, if any, is kept so
// callers can still show the last good result.
func (s *State) SetTaskFailed(name, reason string, now time.Time) {
	r, ok := s.TaskResults[name]
	if !ok {
		r = &TaskResult{}
		s.TaskResults[name] = r
	}
	r.Status = TaskFailed
	r.Reason = reason
	r.FailedAt = now
}

// Confirm flips the confirmation gate. The transition is monotonic: calling
// Confirm on an already confirmed session is a no-op.
func (s *State) Confirm(now time.Time) {
	if s.Confirmed {
		return
	}
	s.Confirmed = true
	s.ConfirmedAt = now
	s.UpdatedAt = now
}

// FailedTasks returns the names of tasks currently in the failed state,
// sorted for stable reporting.
func (s *State) FailedTasks() []string {
	var failed []string
	for name, r := range s.TaskResults {
		if r.Status == TaskFailed {
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	return failed
}

// MissingRequired returns the required fields not yet present, in
// RequiredFields order.
func (f *Fields) MissingRequired() []string {
	missing := make([]string, 0, len(RequiredFields))
	for _, name := range RequiredFields {
		if !f.has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f *Fields) has(name string) bool {
	switch name {
	case "destination":
		return f.Destination != nil
	case "destination_type":
		return f.DestinationType != nil
	case "event_name":
		return f.EventName != nil
	case "event_type":
		return f.EventType != nil
	case "departure_date":
		return f.DepartureDate != nil
	case "return_date":
		return f.ReturnDate != nil
	case "duration":
		return f.Duration != nil
	case "budget":
		return f.Budget != nil
	case "budget_currency":
		return f.BudgetCurrency != nil
	case "passengers":
		return f.Passengers != nil
	case "children":
		return f.Children != nil
	case "travel_class":
		return f.TravelClass != nil
	case "accommodation_type":
		return f.AccommodationType != nil
	case "special_requirements":
		return f.SpecialRequirements != nil
	}
	return false
}
