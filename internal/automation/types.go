package automation

import "time"

// Automation represents a stored definition of triggers and a directed
// graph of actions. Definitions are owned by the authoring subsystem;
// the engine only reads them.
type Automation struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Status AutomationStatus `json:"status"`

	// Triggers that start enrollment evaluation (ordered)
	Triggers []Trigger `json:"triggers"`

	// Actions forming the graph (ordered; may contain cycles via GO_TO)
	Actions []Action `json:"actions"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AutomationStatus represents the lifecycle state of a definition.
// Only active automations receive trigger events.
type AutomationStatus string

const (
	AutomationActive   AutomationStatus = "active"
	AutomationDraft    AutomationStatus = "draft"
	AutomationArchived AutomationStatus = "archived"
)

// Trigger is the event-matching condition that starts enrollment
// evaluation for one automation.
type Trigger struct {
	ID   string `json:"id"`
	Type string `json:"type"` // event kind, e.g. "customer:created", "deal:stage"

	// Type-specific configuration
	Config TriggerConfig `json:"config"`
}

// TriggerConfig carries the trigger's enrollment settings.
type TriggerConfig struct {
	// ContentID references the segment the target must belong to.
	ContentID string `json:"contentId"`

	// ActionID is the first action to run once enrolled. If it references
	// a missing action the execution terminates as missid at runtime.
	ActionID string `json:"actionId,omitempty"`

	// ReEnrollment permits a target with a prior execution to enroll again.
	ReEnrollment bool `json:"reEnrollment,omitempty"`

	// ReEnrollmentRules lists target attribute names whose change permits
	// re-enrollment. Ignored when ReEnrollment is false.
	ReEnrollmentRules []string `json:"reEnrollmentRules,omitempty"`
}

// Action is one node in the graph with a type-specific effect and a
// successor reference. An empty NextActionID means "end of automation"
// for that branch.
type Action struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// Type-specific configuration. IF actions carry "yes"/"no" successor
	// ids and "contentId" here; GO_TO carries "toId"; WAIT carries
	// "value" and "type" (minute/hour/day).
	Config map[string]any `json:"config,omitempty"`

	// Successor on normal completion (unused for IF branching)
	NextActionID string `json:"nextActionId,omitempty"`
}

// Action types the engine dispatches on. The set is open: any other type
// with a registered handler is invoked and falls through to its successor.
const (
	ActionWait         = "WAIT"
	ActionIf           = "IF"
	ActionGoTo         = "GO_TO"
	ActionSetProperty  = "SET_PROPERTY"
	ActionCreateTask   = "CREATE_TASK"
	ActionCreateTicket = "CREATE_TICKET"
	ActionCreateDeal   = "CREATE_DEAL"
	ActionAddDeal      = "ADD_DEAL"
	ActionRemoveDeal   = "REMOVE_DEAL"
)

// Target is the opaque entity a trigger event carries. It must have at
// least an "_id" or "id" field; other attributes are only inspected by
// re-enrollment rules.
type Target map[string]any

// ID returns the target's identifier, preferring "_id" over "id".
func (t Target) ID() string {
	for _, key := range []string{"_id", "id"} {
		if v, ok := t[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// DeepCopy creates an independent copy of the target snapshot.
func (t Target) DeepCopy() Target {
	if t == nil {
		return nil
	}
	return Target(deepCopyMap(map[string]any(t)))
}

// Execution is the sole mutable, persisted record of one run: one
// enrollment instance of one target into one trigger of one automation.
// Created by the Evaluator; mutated exclusively by the Engine; never
// deleted (retained as audit trail).
type Execution struct {
	ID           string `json:"id"`
	AutomationID string `json:"automation_id"`
	TriggerID    string `json:"trigger_id"`
	TriggerType  string `json:"trigger_type"`

	// TriggerConfig is a snapshot of the trigger's config at enrollment time.
	TriggerConfig TriggerConfig `json:"trigger_config"`

	// Target snapshot at enrollment time, used later for change detection.
	TargetID string `json:"target_id"`
	Target   Target `json:"target"`

	Status ExecutionStatus `json:"status"`

	// Wait state (set only while waiting)
	WaitingActionID  *string    `json:"waiting_action_id,omitempty"`
	StartWaitingDate *time.Time `json:"start_waiting_date,omitempty"`

	// Human-readable status detail, e.g. an error message.
	Description string `json:"description,omitempty"`

	// Actions is the append-only log of every action visited, in
	// visitation order, across branches and resumes.
	Actions []LogEntry `json:"actions"`

	// Scratch is per-execution working state owned by action handlers.
	Scratch Scratch `json:"scratch"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogEntry records one visited action on an execution.
type LogEntry struct {
	ActionID     string         `json:"actionId"`
	ActionType   string         `json:"actionType"`
	ActionConfig map[string]any `json:"actionConfig,omitempty"`
	NextActionID string         `json:"nextActionId,omitempty"`
}

// Scratch holds per-execution working state persisted with the row and
// passed to handlers. Replaces any process-wide accumulators: two
// concurrent executions never see each other's deals.
type Scratch struct {
	// Deals accumulates deal names created during this execution.
	// ADD_DEAL/CREATE_DEAL append; REMOVE_DEAL filters.
	Deals []string `json:"deals,omitempty"`
}

// ExecutionStatus represents the state of an execution.
type ExecutionStatus string

const (
	// StatusActive: ready to advance.
	StatusActive ExecutionStatus = "active"
	// StatusWaiting: parked at a WAIT action, awaiting external resume.
	StatusWaiting ExecutionStatus = "waiting"
	// StatusComplete: terminal success, reached an action with no successor.
	StatusComplete ExecutionStatus = "complete"
	// StatusMissid: terminal, a successor id referenced a missing action.
	StatusMissid ExecutionStatus = "missid"
	// StatusError: terminal, an action handler or segment check failed.
	StatusError ExecutionStatus = "error"
)

// Outcome is the result of a single Advance call chain.
type Outcome string

const (
	OutcomeFinished     Outcome = "finished"
	OutcomeMissedAction Outcome = "missed action"
	OutcomePaused       Outcome = "paused"
	OutcomeErrored      Outcome = "errored"
)

// DeepCopy creates a complete independent copy of the Automation.
// All slice and map fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a // Shallow copy of value fields

	if a.Triggers != nil {
		cpy.Triggers = make([]Trigger, len(a.Triggers))
		for i, t := range a.Triggers {
			cpy.Triggers[i] = t
			if t.Config.ReEnrollmentRules != nil {
				rules := make([]string, len(t.Config.ReEnrollmentRules))
				copy(rules, t.Config.ReEnrollmentRules)
				cpy.Triggers[i].Config.ReEnrollmentRules = rules
			}
		}
	}

	if a.Actions != nil {
		cpy.Actions = make([]Action, len(a.Actions))
		for i, action := range a.Actions {
			cpy.Actions[i] = action
			if action.Config != nil {
				cpy.Actions[i].Config = deepCopyMap(action.Config)
			}
		}
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}
