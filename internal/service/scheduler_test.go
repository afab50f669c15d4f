package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/config"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
	"github.com/wayfarer-ai/wayfarer/internal/service"
)

func ptr[T any](v T) *T { return &v }

// completeState returns a session state with every required field present.
func completeState(sessionID string) *trip.State {
	st := trip.NewState(sessionID, time.Now())
	st.ApplyDelta(trip.Delta{
		"destination":    "Lisbon",
		"departure_date": "2026-10-05",
		"duration":       5,
		"budget":         2500.0,
		"passengers":     2,
		"travel_class":   "economy",
	}, time.Now())
	return st
}

// countingProviders builds a provider set where every named task succeeds
// and invocation counts are recorded.
type countingProviders struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingProviders() *countingProviders {
	return &countingProviders{counts: make(map[string]int)}
}

func (c *countingProviders) set(names ...string) provider.Set {
	set := make(provider.Set, len(names))
	for _, name := range names {
		set[name] = c.ok(name)
	}
	return set
}

func (c *countingProviders) ok(name string) provider.Invoker {
	return provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		c.mu.Lock()
		c.counts[name]++
		c.mu.Unlock()
		return &provider.Result{Payload: json.RawMessage(`{"ok":true}`)}, nil
	})
}

func (c *countingProviders) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

func allTaskNames() []string {
	return []string{
		taskdef.TaskDestinationDiscovery,
		taskdef.TaskEventSearch,
		taskdef.TaskFlightSearch,
		taskdef.TaskHotelSearch,
		taskdef.TaskOfferEnrichment,
		taskdef.TaskFlightCuration,
		taskdef.TaskItinerary,
		taskdef.TaskVisaCheck,
		taskdef.TaskHealthAdvisory,
		taskdef.TaskInsuranceQuote,
		taskdef.TaskSeatMap,
	}
}

func testOrchestratorConfig() config.Orchestrator {
	return config.Orchestrator{
		MaxParallel:   4,
		TaskTimeout:   2 * time.Second,
		RetryCooldown: time.Hour,
	}
}

func TestSchedulerPlanningCascade(t *testing.T) {
	providers := newCountingProviders()
	sched := service.NewScheduler(taskdef.Travel(), providers.set(allTaskNames()...), testOrchestratorConfig())

	st := completeState("sess-cascade")
	sched.Run(context.Background(), st, nil)

	// First pass dispatches the independent planning tasks, the follow-up
	// pass picks up offer enrichment once flight+hotel have succeeded.
	for _, name := range []string{
		taskdef.TaskFlightSearch,
		taskdef.TaskHotelSearch,
		taskdef.TaskItinerary,
		taskdef.TaskOfferEnrichment,
	} {
		if got := st.Task(name).Status; got != trip.TaskSucceeded {
			t.Errorf("task %s: status = %s, want succeeded", name, got)
		}
	}

	// Curation depends on enrichment, which only finished in the second
	// pass; it must wait for the next turn rather than cascading deeper.
	if got := st.Task(taskdef.TaskFlightCuration).Status; got != trip.TaskNotRun {
		t.Fatalf("flight_curation after one round: status = %s, want not_run", got)
	}

	sched.Run(context.Background(), st, nil)
	if got := st.Task(taskdef.TaskFlightCuration).Status; got != trip.TaskSucceeded {
		t.Fatalf("flight_curation after second round: status = %s, want succeeded", got)
	}
}

func TestSchedulerConfirmationGate(t *testing.T) {
	providers := newCountingProviders()
	sched := service.NewScheduler(taskdef.Travel(), providers.set(allTaskNames()...), testOrchestratorConfig())

	st := completeState("sess-gate")
	sched.Run(context.Background(), st, nil)
	sched.Run(context.Background(), st, nil)

	for _, name := range []string{
		taskdef.TaskVisaCheck,
		taskdef.TaskHealthAdvisory,
		taskdef.TaskInsuranceQuote,
		taskdef.TaskSeatMap,
	} {
		if got := providers.count(name); got != 0 {
			t.Errorf("task %s dispatched %d times before confirmation", name, got)
		}
	}

	st.Confirm(time.Now())
	sched.Run(context.Background(), st, nil)

	for _, name := range []string{
		taskdef.TaskVisaCheck,
		taskdef.TaskHealthAdvisory,
		taskdef.TaskInsuranceQuote,
		taskdef.TaskSeatMap,
	} {
		if got := st.Task(name).Status; got != trip.TaskSucceeded {
			t.Errorf("task %s after confirmation: status = %s, want succeeded", name, got)
		}
	}
}

func TestSchedulerSkipsConditionalTasks(t *testing.T) {
	providers := newCountingProviders()
	sched := service.NewScheduler(taskdef.Travel(), providers.set(allTaskNames()...), testOrchestratorConfig())

	// Destination known, no event mentioned: neither discovery task applies.
	st := completeState("sess-conditional")
	sched.Run(context.Background(), st, nil)

	if got := providers.count(taskdef.TaskDestinationDiscovery); got != 0 {
		t.Errorf("destination_discovery dispatched %d times with destination set", got)
	}
	if got := providers.count(taskdef.TaskEventSearch); got != 0 {
		t.Errorf("event_search dispatched %d times with no event mentioned", got)
	}
}

func TestSchedulerDestinationDiscovery(t *testing.T) {
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	set[taskdef.TaskDestinationDiscovery] = provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		return &provider.Result{
			Payload:     json.RawMessage(`{"candidates":["Lisbon","Porto"]}`),
			FieldDeltas: trip.Delta{"destination": "Lisbon"},
		}, nil
	})
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := trip.NewState("sess-discovery", time.Now())
	st.ApplyDelta(trip.Delta{"destination_type": "beach"}, time.Now())

	sched.Run(context.Background(), st, nil)

	if st.Fields.Destination == nil || *st.Fields.Destination != "Lisbon" {
		t.Fatalf("destination after discovery = %v, want Lisbon", st.Fields.Destination)
	}
	for i, name := range st.Missing {
		if name == "destination" {
			t.Fatalf("missing[%d] still contains destination after discovery delta", i)
		}
	}
}

func TestSchedulerProviderFailure(t *testing.T) {
	var flightCalls int
	var mu sync.Mutex
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	set[taskdef.TaskFlightSearch] = provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		mu.Lock()
		flightCalls++
		mu.Unlock()
		return nil, errors.New("amadeus: 502 bad gateway")
	})
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := completeState("sess-failure")
	sched.Run(context.Background(), st, nil)

	res := st.Task(taskdef.TaskFlightSearch)
	if res.Status != trip.TaskFailed {
		t.Fatalf("flight_search: status = %s, want failed", res.Status)
	}
	if res.Reason != "amadeus: 502 bad gateway" {
		t.Errorf("flight_search: reason = %q", res.Reason)
	}
	if res.Attempts != 1 {
		t.Errorf("flight_search: attempts = %d, want 1", res.Attempts)
	}

	// Other tasks in the wave are unaffected; dependents stay blocked.
	if got := st.Task(taskdef.TaskHotelSearch).Status; got != trip.TaskSucceeded {
		t.Errorf("hotel_search: status = %s, want succeeded", got)
	}
	if got := st.Task(taskdef.TaskItinerary).Status; got != trip.TaskNotRun {
		t.Errorf("itinerary with failed flight dependency: status = %s, want not_run", got)
	}

	if failed := st.FailedTasks(); len(failed) != 1 || failed[0] != taskdef.TaskFlightSearch {
		t.Errorf("FailedTasks() = %v", failed)
	}

	// Within the cooldown window the failure is not retried.
	sched.Run(context.Background(), st, nil)
	mu.Lock()
	calls := flightCalls
	mu.Unlock()
	if calls != 1 {
		t.Errorf("flight_search invoked %d times, want 1 (no retry within cooldown)", calls)
	}
}

func TestSchedulerRetryExhaustion(t *testing.T) {
	cfg := testOrchestratorConfig()
	cfg.RetryCooldown = 0 // failed tasks become eligible immediately

	var invocations int
	var mu sync.Mutex
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	set[taskdef.TaskFlightSearch] = provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		mu.Lock()
		invocations++
		mu.Unlock()
		return nil, errors.New("no flights")
	})
	sched := service.NewScheduler(taskdef.Travel(), set, cfg)

	st := completeState("sess-exhaust")
	for i := 0; i < 5; i++ {
		sched.Run(context.Background(), st, nil)
	}

	mu.Lock()
	got := invocations
	mu.Unlock()
	if got != taskdef.DefaultMaxAttempts {
		t.Fatalf("flight_search invoked %d times, want %d", got, taskdef.DefaultMaxAttempts)
	}
	res := st.Task(taskdef.TaskFlightSearch)
	if res.Status != trip.TaskFailed || res.Attempts != taskdef.DefaultMaxAttempts {
		t.Fatalf("flight_search terminal record = %+v", res)
	}
}

func TestSchedulerTimeout(t *testing.T) {
	registry := taskdef.NewRegistry()
	registry.MustRegister(&taskdef.Descriptor{
		Name:         "slow_task",
		Group:        taskdef.GroupPlanning,
		RunnableWhen: func(*trip.State) bool { return true },
		Timeout:      20 * time.Millisecond,
	})

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	set := provider.Set{
		"slow_task": provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
			<-block
			return &provider.Result{Payload: json.RawMessage(`{"late":true}`)}, nil
		}),
	}
	sched := service.NewScheduler(registry, set, testOrchestratorConfig())

	st := trip.NewState("sess-timeout", time.Now())
	sched.Run(context.Background(), st, nil)

	res := st.Task("slow_task")
	if res.Status != trip.TaskFailed {
		t.Fatalf("slow_task: status = %s, want failed", res.Status)
	}
	if res.Reason != "timeout" {
		t.Errorf("slow_task: reason = %q, want timeout", res.Reason)
	}
	// The late payload must not have been merged after the deadline.
	if res.Payload != nil {
		t.Errorf("slow_task: stale payload recorded: %s", res.Payload)
	}
}

func TestSchedulerRunningTaskNotReclaimed(t *testing.T) {
	providers := newCountingProviders()
	sched := service.NewScheduler(taskdef.Travel(), providers.set(allTaskNames()...), testOrchestratorConfig())

	st := completeState("sess-inflight")
	if !st.SetTaskRunning(taskdef.TaskFlightSearch) {
		t.Fatal("SetTaskRunning on fresh task returned false")
	}

	sched.Run(context.Background(), st, nil)

	if got := providers.count(taskdef.TaskFlightSearch); got != 0 {
		t.Errorf("flight_search dispatched %d times while already running", got)
	}
	if got := providers.count(taskdef.TaskHotelSearch); got != 1 {
		t.Errorf("hotel_search dispatched %d times, want 1", got)
	}
}

func TestSchedulerFieldDeltaMerge(t *testing.T) {
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	set[taskdef.TaskOfferEnrichment] = provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		return &provider.Result{
			Payload:     json.RawMessage(`{"offers":3}`),
			FieldDeltas: trip.Delta{"enhanced_offers": json.RawMessage(`[{"id":"o1"}]`)},
		}, nil
	})
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := completeState("sess-deltas")
	sched.Run(context.Background(), st, nil)

	if got := string(st.Fields.EnhancedOffers); got != `[{"id":"o1"}]` {
		t.Fatalf("EnhancedOffers = %s", got)
	}
}

func TestSchedulerDependentSeesResults(t *testing.T) {
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	set[taskdef.TaskFlightSearch] = provider.Func(func(_ context.Context, _ provider.Request) (*provider.Result, error) {
		return &provider.Result{Payload: json.RawMessage(`{"offers":[{"id":"f1"}]}`)}, nil
	})

	var gotFlights json.RawMessage
	var mu sync.Mutex
	set[taskdef.TaskOfferEnrichment] = provider.Func(func(_ context.Context, req provider.Request) (*provider.Result, error) {
		mu.Lock()
		gotFlights = req.Results[taskdef.TaskFlightSearch]
		mu.Unlock()
		return &provider.Result{Payload: json.RawMessage(`{}`)}, nil
	})
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := completeState("sess-results")
	sched.Run(context.Background(), st, nil)

	mu.Lock()
	defer mu.Unlock()
	if string(gotFlights) != `{"offers":[{"id":"f1"}]}` {
		t.Fatalf("enrichment saw flight results %s", gotFlights)
	}
}

func TestSchedulerNoProvider(t *testing.T) {
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)
	delete(set, taskdef.TaskItinerary)
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := completeState("sess-noprov")
	sched.Run(context.Background(), st, nil)

	res := st.Task(taskdef.TaskItinerary)
	if res.Status != trip.TaskFailed {
		t.Fatalf("itinerary without provider: status = %s, want failed", res.Status)
	}
	if res.Reason != "no provider registered" {
		t.Errorf("itinerary: reason = %q", res.Reason)
	}
}

func TestSchedulerConcurrentRunsSingleDispatch(t *testing.T) {
	providers := newCountingProviders()
	set := providers.set(allTaskNames()...)

	entered := make(chan string, 2)
	release := make(chan struct{})
	blocking := func(name string) provider.Invoker {
		inner := providers.ok(name)
		return provider.Func(func(ctx context.Context, req provider.Request) (*provider.Result, error) {
			entered <- name
			<-release
			return inner.Invoke(ctx, req)
		})
	}
	set[taskdef.TaskFlightSearch] = blocking(taskdef.TaskFlightSearch)
	set[taskdef.TaskHotelSearch] = blocking(taskdef.TaskHotelSearch)
	sched := service.NewScheduler(taskdef.Travel(), set, testOrchestratorConfig())

	st := completeState("sess-concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(context.Background(), st, nil)
		}()
	}

	// Both planning searches are in flight; whichever Run claimed them
	// holds the claims, so the other Run must find nothing eligible.
	<-entered
	<-entered
	close(release)
	wg.Wait()

	for _, name := range []string{taskdef.TaskFlightSearch, taskdef.TaskHotelSearch} {
		if got := providers.count(name); got != 1 {
			t.Errorf("task %s dispatched %d times across concurrent runs, want 1", name, got)
		}
	}
	// Dependents may land in either run's follow-up pass, but never in both.
	for _, name := range []string{taskdef.TaskItinerary, taskdef.TaskOfferEnrichment} {
		if got := providers.count(name); got > 1 {
			t.Errorf("task %s dispatched %d times across concurrent runs, want at most 1", name, got)
		}
	}
}
