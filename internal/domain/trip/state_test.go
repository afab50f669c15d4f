package trip_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

func TestTaskLifecycle(t *testing.T) {
	now := time.Now()
	st := trip.NewState("sess-1", now)

	if got := st.Task("flight_search").Status; got != trip.TaskNotRun {
		t.Fatalf("fresh task status = %s, want not_run", got)
	}

	if !st.SetTaskRunning("flight_search") {
		t.Fatal("SetTaskRunning on not_run task returned false")
	}
	if st.SetTaskRunning("flight_search") {
		t.Fatal("SetTaskRunning claimed an already running task")
	}
	if got := st.Task("flight_search").Attempts; got != 1 {
		t.Fatalf("attempts after claim = %d, want 1", got)
	}

	st.SetTaskSucceeded("flight_search", json.RawMessage(`{"offers":2}`))
	res := st.Task("flight_search")
	if res.Status != trip.TaskSucceeded {
		t.Fatalf("status = %s, want succeeded", res.Status)
	}
	if string(res.Payload) != `{"offers":2}` {
		t.Errorf("payload = %s", res.Payload)
	}

	if st.SetTaskRunning("flight_search") {
		t.Fatal("SetTaskRunning claimed a succeeded task")
	}
}

func TestTaskFailureAndReclaim(t *testing.T) {
	now := time.Now()
	st := trip.NewState("sess-2", now)

	st.SetTaskRunning("hotel_search")
	st.SetTaskFailed("hotel_search", "upstream 503", now)

	res := st.Task("hotel_search")
	if res.Status != trip.TaskFailed || res.Reason != "upstream 503" {
		t.Fatalf("failure record = %+v", res)
	}
	if !res.FailedAt.Equal(now) {
		t.Errorf("FailedAt = %v, want %v", res.FailedAt, now)
	}

	// A failed task may be claimed again; attempts accumulate.
	if !st.SetTaskRunning("hotel_search") {
		t.Fatal("SetTaskRunning on failed task returned false")
	}
	if got := st.Task("hotel_search").Attempts; got != 2 {
		t.Fatalf("attempts after retry = %d, want 2", got)
	}
}

func TestFailureKeepsLastPayload(t *testing.T) {
	now := time.Now()
	st := trip.NewState("sess-3", now)

	st.SetTaskSucceeded("hotel_search", json.RawMessage(`{"hotels":5}`))
	st.SetTaskFailed("hotel_search", "refresh failed", now)

	res := st.Task("hotel_search")
	if string(res.Payload) != `{"hotels":5}` {
		t.Fatalf("payload after failure = %s, want previous result kept", res.Payload)
	}
}

func TestConfirmMonotonic(t *testing.T) {
	first := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	st := trip.NewState("sess-4", first)
	st.Confirm(first)
	if !st.Confirmed || !st.ConfirmedAt.Equal(first) {
		t.Fatalf("after confirm: confirmed=%v at=%v", st.Confirmed, st.ConfirmedAt)
	}

	st.Confirm(later)
	if !st.ConfirmedAt.Equal(first) {
		t.Fatalf("repeat confirm moved ConfirmedAt to %v", st.ConfirmedAt)
	}
}

func TestFailedTasksSorted(t *testing.T) {
	now := time.Now()
	st := trip.NewState("sess-5", now)

	st.SetTaskFailed("visa_check", "x", now)
	st.SetTaskFailed("flight_search", "y", now)
	st.SetTaskSucceeded("hotel_search", nil)

	want := []string{"flight_search", "visa_check"}
	if got := st.FailedTasks(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FailedTasks() = %v, want %v", got, want)
	}
}

func TestStateJSONRoundtrip(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	st := trip.NewState("sess-6", now)
	st.ApplyDelta(trip.Delta{
		"destination":          "Lisbon",
		"special_requirements": []any{},
	}, now)
	st.SetTaskRunning("flight_search")
	st.SetTaskFailed("flight_search", "timeout", now)

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	var decoded trip.State
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.SessionID != "sess-6" {
		t.Errorf("session_id = %s", decoded.SessionID)
	}
	if decoded.Fields.Destination == nil || *decoded.Fields.Destination != "Lisbon" {
		t.Errorf("destination = %v", decoded.Fields.Destination)
	}
	if decoded.Fields.SpecialRequirements == nil {
		t.Error("explicit empty special_requirements lost in roundtrip")
	}
	res := decoded.Task("flight_search")
	if res.Status != trip.TaskFailed || res.Reason != "timeout" || res.Attempts != 1 {
		t.Errorf("task record after roundtrip = %+v", res)
	}
	if !res.FailedAt.Equal(now) {
		t.Errorf("FailedAt after roundtrip = %v", res.FailedAt)
	}
	if !reflect.DeepEqual(decoded.Missing, st.Missing) {
		t.Errorf("missing after roundtrip = %v, want %v", decoded.Missing, st.Missing)
	}
}
