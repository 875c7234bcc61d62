package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockRepository is an in-memory Repository for engine tests.
type mockRepository struct {
	mu          sync.Mutex
	automations map[string]*Automation
	executions  map[string]*Execution
	order       []string // execution ids in creation order
	failUpdate  bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		automations: make(map[string]*Automation),
		executions:  make(map[string]*Execution),
	}
}

func (m *mockRepository) GetAutomation(_ context.Context, id string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.automations[id]
	if !ok {
		return nil, ErrAutomationNotFound
	}
	return a.DeepCopy(), nil
}

func (m *mockRepository) ListActiveAutomations(_ context.Context) ([]Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Automation
	for _, a := range m.automations {
		if a.Status == AutomationActive {
			out = append(out, *a.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockRepository) SaveAutomation(_ context.Context, a *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.automations[a.ID] = a.DeepCopy()
	return nil
}

func (m *mockRepository) CreateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := *exec
	m.executions[exec.ID] = &cpy
	m.order = append(m.order, exec.ID)
	return nil
}

func (m *mockRepository) UpdateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return errors.New("storage unavailable")
	}
	if _, ok := m.executions[exec.ID]; !ok {
		return ErrExecutionNotFound
	}
	cpy := *exec
	m.executions[exec.ID] = &cpy
	return nil
}

func (m *mockRepository) GetExecution(_ context.Context, id string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	cpy := *exec
	return &cpy, nil
}

func (m *mockRepository) LatestExecution(_ context.Context, automationID, triggerID, targetID string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		exec := m.executions[m.order[i]]
		if exec.AutomationID == automationID && exec.TriggerID == triggerID && exec.TargetID == targetID {
			cpy := *exec
			return &cpy, nil
		}
	}
	return nil, ErrExecutionNotFound
}

func (m *mockRepository) ListExecutions(_ context.Context, automationID string, limit int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Execution
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		exec := m.executions[m.order[i]]
		if exec.AutomationID == automationID {
			out = append(out, *exec)
		}
	}
	return out, nil
}

func (m *mockRepository) ClaimWaiting(_ context.Context, id string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	if exec.Status != StatusWaiting {
		return nil, ErrNotWaiting
	}
	exec.Status = StatusActive
	cpy := *exec
	return &cpy, nil
}

func (m *mockRepository) ListWaiting(_ context.Context, limit int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Execution
	for _, id := range m.order {
		if len(out) >= limit {
			break
		}
		exec := m.executions[id]
		if exec.Status == StatusWaiting {
			out = append(out, *exec)
		}
	}
	return out, nil
}

// mockSegments answers membership from a fixed table.
type mockSegments struct {
	mu      sync.Mutex
	members map[string]bool // "segmentID|targetID" -> member
	err     error
	calls   int
}

func newMockSegments() *mockSegments {
	return &mockSegments{members: make(map[string]bool)}
}

func (m *mockSegments) set(segmentID, targetID string, member bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[segmentID+"|"+targetID] = member
}

func (m *mockSegments) IsInSegment(_ context.Context, segmentID, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.members[segmentID+"|"+targetID], nil
}

// mockRequester captures RPC calls and can fail selectively.
type mockRequester struct {
	mu       sync.Mutex
	calls    []rpcCall
	failOn   string // "service/event" to fail on
	response map[string]any
}

type rpcCall struct {
	Service string
	Event   string
	Payload map[string]any
}

func newMockRequester() *mockRequester {
	return &mockRequester{}
}

func (m *mockRequester) Request(_ context.Context, service, event string, payload map[string]any) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == service+"/"+event {
		return nil, fmt.Errorf("%s refused the request", service)
	}
	m.calls = append(m.calls, rpcCall{Service: service, Event: event, Payload: payload})
	return m.response, nil
}

func (m *mockRequester) getCalls() []rpcCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]rpcCall, len(m.calls))
	copy(cpy, m.calls)
	return cpy
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func setupEngine(t *testing.T) (*Engine, *mockRepository, *mockSegments, *mockRequester) {
	t.Helper()

	repo := newMockRepository()
	registry := NewRegistry(repo)
	segments := newMockSegments()
	requester := newMockRequester()

	handlers := NewHandlerRegistry()
	RegisterDefaultHandlers(handlers, requester, time.Second)

	engine := NewEngine(registry, repo, segments, handlers, noopLogger{})
	return engine, repo, segments, requester
}

// seedExecution creates a persisted active execution ready to advance.
func seedExecution(t *testing.T, repo *mockRepository, automationID string) *Execution {
	t.Helper()

	exec := &Execution{
		ID:           GenerateID(),
		AutomationID: automationID,
		TriggerID:    "t1",
		TriggerType:  "customer:created",
		TargetID:     "c1",
		Target:       Target{"_id": "c1", "stage": "new"},
		Status:       StatusActive,
		Actions:      []LogEntry{},
	}
	if err := repo.CreateExecution(context.Background(), exec); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	return exec
}

// seedAutomation stores a definition and refreshes the registry cache.
func seedAutomation(t *testing.T, engine *Engine, repo *mockRepository, a *Automation) {
	t.Helper()

	if a.Status == "" {
		a.Status = AutomationActive
	}
	if err := repo.SaveAutomation(context.Background(), a); err != nil {
		t.Fatalf("SaveAutomation: %v", err)
	}
	if err := engine.registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
}

func logIDs(exec *Execution) []string {
	ids := make([]string, len(exec.Actions))
	for i, entry := range exec.Actions {
		ids[i] = entry.ActionID
	}
	return ids
}

func assertLog(t *testing.T, exec *Execution, want ...string) {
	t.Helper()

	got := logIDs(exec)
	if len(got) != len(want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("log = %v, want %v", got, want)
		}
	}
}

// ─── Advance Tests ──────────────────────────────────────────────────────────

func TestEngine_Advance_EmptyStartFinishes(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	outcome, err := engine.Advance(context.Background(), exec, map[string]Action{}, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomeFinished {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFinished)
	}
	if exec.Status != StatusComplete {
		t.Errorf("status = %q, want %q", exec.Status, StatusComplete)
	}

	stored, _ := repo.GetExecution(context.Background(), exec.ID)
	if stored.Status != StatusComplete {
		t.Errorf("persisted status = %q, want %q", stored.Status, StatusComplete)
	}
}

func TestEngine_Advance_MissingAction(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	outcome, err := engine.Advance(context.Background(), exec, map[string]Action{}, "ghost")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomeMissedAction {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeMissedAction)
	}
	if exec.Status != StatusMissid {
		t.Errorf("status = %q, want %q", exec.Status, StatusMissid)
	}
	if !strings.Contains(exec.Description, "ghost") {
		t.Errorf("description = %q, want mention of the missing id", exec.Description)
	}
}

func TestEngine_Advance_WaitPauses(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	actionsMap := BuildActionMap([]Action{
		{ID: "a1", Type: ActionWait, Config: map[string]any{"value": float64(5), "type": "minute"}, NextActionID: "a2"},
		{ID: "a2", Type: "NOOP"},
	})

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "a1")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomePaused {
		t.Errorf("outcome = %q, want %q", outcome, OutcomePaused)
	}
	if exec.Status != StatusWaiting {
		t.Errorf("status = %q, want %q", exec.Status, StatusWaiting)
	}
	if exec.WaitingActionID == nil || *exec.WaitingActionID != "a1" {
		t.Errorf("waitingActionID = %v, want a1", exec.WaitingActionID)
	}
	if exec.StartWaitingDate == nil {
		t.Error("startWaitingDate not set")
	}

	// The wait action is not logged until the resume passes through it.
	assertLog(t, exec)
}

func TestEngine_Advance_IfBranches(t *testing.T) {
	tests := []struct {
		name       string
		member     bool
		wantStatus ExecutionStatus
		wantLog    []string
	}{
		{
			name:       "yes branch reaches wait and pauses",
			member:     true,
			wantStatus: StatusWaiting,
			wantLog:    []string{"cond"},
		},
		{
			name:       "no branch runs to completion",
			member:     false,
			wantStatus: StatusComplete,
			wantLog:    []string{"cond", "done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, repo, segments, _ := setupEngine(t)
			exec := seedExecution(t, repo, "auto-1")
			segments.set("seg-vip", "c1", tt.member)

			actionsMap := BuildActionMap([]Action{
				{ID: "cond", Type: ActionIf, Config: map[string]any{
					"contentId": "seg-vip",
					"yes":       "pause",
					"no":        "done",
				}},
				{ID: "pause", Type: ActionWait, Config: map[string]any{"value": float64(1), "type": "hour"}},
				{ID: "done", Type: "NOOP"},
			})

			if _, err := engine.Advance(context.Background(), exec, actionsMap, "cond"); err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if exec.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", exec.Status, tt.wantStatus)
			}
			assertLog(t, exec, tt.wantLog...)
		})
	}
}

func TestEngine_Advance_GoTo(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	actionsMap := BuildActionMap([]Action{
		{ID: "jump", Type: ActionGoTo, Config: map[string]any{"toId": "landing"}},
		{ID: "landing", Type: "NOOP"},
	})

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "jump")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomeFinished {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFinished)
	}
	assertLog(t, exec, "jump", "landing")
}

func TestEngine_Advance_GoToCycleHitsStepLimit(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	engine.SetMaxSteps(10)
	exec := seedExecution(t, repo, "auto-1")

	// a <-> b forever
	actionsMap := BuildActionMap([]Action{
		{ID: "a", Type: ActionGoTo, Config: map[string]any{"toId": "b"}},
		{ID: "b", Type: ActionGoTo, Config: map[string]any{"toId": "a"}},
	})

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "a")
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("Advance error = %v, want ErrStepLimit", err)
	}
	if outcome != OutcomeErrored {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeErrored)
	}
	if exec.Status != StatusError {
		t.Errorf("status = %q, want %q", exec.Status, StatusError)
	}
	if len(exec.Actions) != 10 {
		t.Errorf("logged %d actions, want 10 (one per step)", len(exec.Actions))
	}
}

func TestEngine_Advance_HandlerErrorTerminates(t *testing.T) {
	engine, repo, _, requester := setupEngine(t)
	requester.failOn = "cards/addBoardItem"
	exec := seedExecution(t, repo, "auto-1")

	actionsMap := BuildActionMap([]Action{
		{ID: "make-deal", Type: ActionCreateDeal, Config: map[string]any{"name": "Big deal"}, NextActionID: "after"},
		{ID: "after", Type: "NOOP"},
	})

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "make-deal")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomeErrored {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeErrored)
	}
	if exec.Status != StatusError {
		t.Errorf("status = %q, want %q", exec.Status, StatusError)
	}
	if !strings.Contains(exec.Description, "refused the request") {
		t.Errorf("description = %q, want the handler's message", exec.Description)
	}

	// The failing action is logged; its successor is not.
	assertLog(t, exec, "make-deal")
}

func TestEngine_Advance_UnknownTypeFallsThrough(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	actionsMap := BuildActionMap([]Action{
		{ID: "custom", Type: "SEND_SMS", NextActionID: "tail"},
		{ID: "tail", Type: "NOOP"},
	})

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "custom")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomeFinished {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFinished)
	}
	assertLog(t, exec, "custom", "tail")
}

func TestEngine_Advance_PersistFailureSurfaces(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")
	repo.failUpdate = true

	_, err := engine.Advance(context.Background(), exec, map[string]Action{}, "")
	if err == nil {
		t.Fatal("Advance should surface persistence failures")
	}
}

// ─── Resume Tests ───────────────────────────────────────────────────────────

// The canonical flow: SET_PROPERTY -> WAIT -> CREATE_TASK. The first
// advance parks at the wait with only the first action logged; the
// resume logs the wait on its way through and completes the chain.
func TestEngine_ResumeCompletesWaitedChain(t *testing.T) {
	engine, repo, _, requester := setupEngine(t)

	seedAutomation(t, engine, repo, &Automation{
		ID:   "auto-1",
		Name: "Welcome flow",
		Actions: []Action{
			{ID: "a1", Type: ActionSetProperty, Config: map[string]any{"field": "state", "value": "welcomed"}, NextActionID: "a2"},
			{ID: "a2", Type: ActionWait, Config: map[string]any{"value": float64(1), "type": "minute"}, NextActionID: "a3"},
			{ID: "a3", Type: ActionCreateTask, Config: map[string]any{"name": "Follow up"}},
		},
	})

	exec := seedExecution(t, repo, "auto-1")
	automation, _ := repo.GetAutomation(context.Background(), "auto-1")
	actionsMap := BuildActionMap(automation.Actions)

	outcome, err := engine.Advance(context.Background(), exec, actionsMap, "a1")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != OutcomePaused {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomePaused)
	}
	assertLog(t, exec, "a1")

	outcome, err = engine.Resume(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if outcome != OutcomeFinished {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFinished)
	}

	stored, _ := repo.GetExecution(context.Background(), exec.ID)
	if stored.Status != StatusComplete {
		t.Errorf("status = %q, want %q", stored.Status, StatusComplete)
	}
	if stored.WaitingActionID != nil {
		t.Error("waitingActionID should be cleared after resume")
	}
	assertLog(t, stored, "a1", "a2", "a3")

	// Both remote handlers were invoked.
	calls := requester.getCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 RPC calls, got %d", len(calls))
	}
	if calls[0].Event != "setProperty" || calls[1].Event != "addBoardItem" {
		t.Errorf("calls = %v %v, want setProperty then addBoardItem", calls[0].Event, calls[1].Event)
	}
	if calls[1].Payload["type"] != "task" {
		t.Errorf("board item type = %v, want task", calls[1].Payload["type"])
	}
}

func TestEngine_ResumeTwiceFailsSecondClaim(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)

	seedAutomation(t, engine, repo, &Automation{
		ID:   "auto-1",
		Name: "Waiter",
		Actions: []Action{
			{ID: "w", Type: ActionWait, Config: map[string]any{"value": float64(1), "type": "minute"}},
		},
	})

	exec := seedExecution(t, repo, "auto-1")
	automation, _ := repo.GetAutomation(context.Background(), "auto-1")

	if _, err := engine.Advance(context.Background(), exec, BuildActionMap(automation.Actions), "w"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if _, err := engine.Resume(context.Background(), exec.ID); err != nil {
		t.Fatalf("first Resume: %v", err)
	}

	_, err := engine.Resume(context.Background(), exec.ID)
	if !errors.Is(err, ErrNotWaiting) {
		t.Errorf("second Resume error = %v, want ErrNotWaiting", err)
	}
}

func TestEngine_ResumeUnknownExecution(t *testing.T) {
	engine, _, _, _ := setupEngine(t)

	_, err := engine.Resume(context.Background(), "nope")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("Resume error = %v, want ErrExecutionNotFound", err)
	}
}

func TestEngine_WaitRevisitParksAgain(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)

	// After resuming through the wait, a GO_TO loops back to it; the
	// second visit must park again rather than pass through.
	seedAutomation(t, engine, repo, &Automation{
		ID:   "auto-1",
		Name: "Loop waiter",
		Actions: []Action{
			{ID: "w", Type: ActionWait, Config: map[string]any{"value": float64(1), "type": "minute"}, NextActionID: "back"},
			{ID: "back", Type: ActionGoTo, Config: map[string]any{"toId": "w"}},
		},
	})

	exec := seedExecution(t, repo, "auto-1")
	automation, _ := repo.GetAutomation(context.Background(), "auto-1")

	if _, err := engine.Advance(context.Background(), exec, BuildActionMap(automation.Actions), "w"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	outcome, err := engine.Resume(context.Background(), exec.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if outcome != OutcomePaused {
		t.Errorf("outcome = %q, want %q (parked at the wait again)", outcome, OutcomePaused)
	}

	stored, _ := repo.GetExecution(context.Background(), exec.ID)
	if stored.Status != StatusWaiting {
		t.Errorf("status = %q, want %q", stored.Status, StatusWaiting)
	}
	assertLog(t, stored, "w", "back")
}

// ─── Scratch State Tests ────────────────────────────────────────────────────

func TestEngine_DealScratchAccumulatesAndFilters(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	exec := seedExecution(t, repo, "auto-1")

	actionsMap := BuildActionMap([]Action{
		{ID: "d1", Type: ActionCreateDeal, Config: map[string]any{"name": "alpha"}, NextActionID: "d2"},
		{ID: "d2", Type: ActionAddDeal, Config: map[string]any{"name": "beta"}, NextActionID: "rm"},
		{ID: "rm", Type: ActionRemoveDeal, Config: map[string]any{"names": []any{"alpha"}}},
	})

	if _, err := engine.Advance(context.Background(), exec, actionsMap, "d1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	stored, _ := repo.GetExecution(context.Background(), exec.ID)
	if len(stored.Scratch.Deals) != 1 || stored.Scratch.Deals[0] != "beta" {
		t.Errorf("scratch deals = %v, want [beta]", stored.Scratch.Deals)
	}
}

func TestEngine_ScratchIsolatedPerExecution(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)

	actionsMap := BuildActionMap([]Action{
		{ID: "d", Type: ActionCreateDeal, Config: map[string]any{"name": "mine"}},
	})

	first := seedExecution(t, repo, "auto-1")
	second := seedExecution(t, repo, "auto-1")

	if _, err := engine.Advance(context.Background(), first, actionsMap, "d"); err != nil {
		t.Fatalf("Advance first: %v", err)
	}

	storedSecond, _ := repo.GetExecution(context.Background(), second.ID)
	if len(storedSecond.Scratch.Deals) != 0 {
		t.Errorf("second execution scratch = %v, want empty", storedSecond.Scratch.Deals)
	}
}

// ─── Event / Metrics Tests ──────────────────────────────────────────────────

type mockEvents struct {
	mu     sync.Mutex
	topics []string
}

func (m *mockEvents) Publish(topic string, _ []byte, _ byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return nil
}

type mockMetrics struct {
	mu      sync.Mutex
	points  []string // "automationID/status"
	trigger []string // "type"
}

func (m *mockMetrics) WriteExecutionMetric(automationID, status string, _ float64, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, automationID+"/"+status)
}

func (m *mockMetrics) WriteTriggerMetric(triggerType string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = append(m.trigger, triggerType)
}

func TestEngine_PublishesLifecycleEvent(t *testing.T) {
	engine, repo, _, _ := setupEngine(t)
	events := &mockEvents{}
	metrics := &mockMetrics{}
	engine.SetEventPublisher(events)
	engine.SetMetrics(metrics)

	exec := seedExecution(t, repo, "auto-1")

	if _, err := engine.Advance(context.Background(), exec, map[string]Action{}, ""); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.topics) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.topics))
	}
	want := "relay/core/execution/" + exec.ID + "/complete"
	if events.topics[0] != want {
		t.Errorf("topic = %q, want %q", events.topics[0], want)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.points) != 1 || metrics.points[0] != "auto-1/complete" {
		t.Errorf("metric points = %v, want [auto-1/complete]", metrics.points)
	}
}
