package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventPublisher is the interface for publishing engine events to observers.
type EventPublisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MetricsRecorder records execution telemetry points.
type MetricsRecorder interface {
	WriteExecutionMetric(automationID string, status string, durationMs float64, steps int)
}

// defaultMaxSteps bounds a single advance chain. A legitimate graph walk
// is far shorter; hitting the limit means a runaway GO_TO cycle.
const defaultMaxSteps = 1000

// Engine is the resumable graph-walker that advances an Execution
// through actions until it finishes, parks at a wait action, errors,
// or hits a dead link.
//
// The walk is an explicit loop over a current action id rather than
// recursion, so GO_TO cycles fail safely against the step limit instead
// of exhausting the stack.
//
// Thread Safety: Advance and Resume are safe for concurrent use across
// different executions. The repository's compare-and-swap claim prevents
// two resumers from both advancing the same waiting execution.
type Engine struct {
	registry *Registry
	repo     Repository
	segments SegmentChecker
	handlers *HandlerRegistry
	events   EventPublisher  // optional, set via SetEventPublisher
	metrics  MetricsRecorder // optional, set via SetMetrics
	logger   Logger
	maxSteps int
}

// NewEngine creates a new execution engine.
//
// Parameters:
//   - registry: Automation definitions for resume lookups
//   - repo: Repository for persisting execution state
//   - segments: Segment membership oracle for IF branching
//   - handlers: Action-handler registry for effectful action types
//   - logger: Logger instance (nil for no logging)
func NewEngine(registry *Registry, repo Repository, segments SegmentChecker, handlers *HandlerRegistry, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry: registry,
		repo:     repo,
		segments: segments,
		handlers: handlers,
		logger:   logger,
		maxSteps: defaultMaxSteps,
	}
}

// SetEventPublisher sets a publisher for execution lifecycle events.
func (e *Engine) SetEventPublisher(events EventPublisher) {
	e.events = events
}

// SetMetrics sets a recorder for execution telemetry.
func (e *Engine) SetMetrics(metrics MetricsRecorder) {
	e.metrics = metrics
}

// SetMaxSteps overrides the per-invocation step limit.
func (e *Engine) SetMaxSteps(maxSteps int) {
	if maxSteps > 0 {
		e.maxSteps = maxSteps
	}
}

// Advance walks the action graph from startActionID until the execution
// finishes, parks at a WAIT action, errors, or references a missing
// action. Exactly one execution row is mutated per call chain; every
// visited action is appended to the log exactly once, in visitation
// order, even across branches and loops.
//
// Returns:
//   - Outcome: finished, paused, missed action, or errored
//   - error: only for infrastructure failures (persistence) or the step
//     limit; handler and segment failures are recorded on the execution
//     and reported as OutcomeErrored with a nil error
func (e *Engine) Advance(ctx context.Context, exec *Execution, actionsMap map[string]Action, startActionID string) (Outcome, error) {
	return e.advance(ctx, exec, actionsMap, startActionID, "")
}

// Resume claims a waiting execution and continues the walk through its
// wait action. The claim is a compare-and-swap on status: if another
// resumer (or a concurrent sweep) got there first, ErrNotWaiting is
// returned and no work is performed.
//
// The wait action itself is logged during the resume visit, so the log
// reads [.., WAIT, successor, ..] only once the wait has elapsed.
func (e *Engine) Resume(ctx context.Context, executionID string) (Outcome, error) {
	exec, err := e.repo.ClaimWaiting(ctx, executionID)
	if err != nil {
		return "", err
	}

	if exec.WaitingActionID == nil || *exec.WaitingActionID == "" {
		exec.Status = StatusError
		exec.Description = "resumed without a waiting action id"
		if persistErr := e.persist(ctx, exec); persistErr != nil {
			return "", persistErr
		}
		return OutcomeErrored, nil
	}

	automation, err := e.registry.GetAutomation(ctx, exec.AutomationID)
	if err != nil {
		exec.Status = StatusError
		exec.Description = fmt.Sprintf("automation %q unavailable on resume: %v", exec.AutomationID, err)
		if persistErr := e.persist(ctx, exec); persistErr != nil {
			return "", persistErr
		}
		return OutcomeErrored, nil
	}

	startID := *exec.WaitingActionID
	exec.WaitingActionID = nil
	exec.StartWaitingDate = nil

	e.logger.Info("execution resumed",
		"execution_id", exec.ID,
		"automation_id", exec.AutomationID,
		"action_id", startID,
	)

	return e.advance(ctx, exec, BuildActionMap(automation.Actions), startID, startID)
}

// advance is the walk loop. resumeThrough names a WAIT action that may
// be passed through once (the resume case); any other WAIT visit parks.
func (e *Engine) advance(ctx context.Context, exec *Execution, actionsMap map[string]Action, startActionID, resumeThrough string) (Outcome, error) {
	started := time.Now()
	steps := 0
	currentID := startActionID

	for {
		// No successor: end of automation for this branch.
		if currentID == "" {
			exec.Status = StatusComplete
			if err := e.persist(ctx, exec); err != nil {
				return "", err
			}
			e.finish(exec, started, steps)
			return OutcomeFinished, nil
		}

		action, ok := actionsMap[currentID]
		if !ok {
			exec.Status = StatusMissid
			exec.Description = fmt.Sprintf("action %q not found", currentID)
			if err := e.persist(ctx, exec); err != nil {
				return "", err
			}
			e.finish(exec, started, steps)
			return OutcomeMissedAction, nil
		}

		// Park at a wait action. The action is not logged yet; the
		// resume visit passes through it and logs it then.
		if action.Type == ActionWait && currentID != resumeThrough {
			now := time.Now().UTC()
			id := action.ID
			exec.Status = StatusWaiting
			exec.WaitingActionID = &id
			exec.StartWaitingDate = &now
			if err := e.persist(ctx, exec); err != nil {
				return "", err
			}
			e.finish(exec, started, steps)
			return OutcomePaused, nil
		}
		resumeThrough = "" // a later revisit of the same wait parks again

		steps++
		if steps > e.maxSteps {
			exec.Status = StatusError
			exec.Description = fmt.Sprintf("step limit of %d exceeded at action %q", e.maxSteps, currentID)
			if err := e.persist(ctx, exec); err != nil {
				return "", err
			}
			e.finish(exec, started, steps)
			return OutcomeErrored, ErrStepLimit
		}

		// Visit: mark active and append to the log before dispatching.
		exec.Status = StatusActive
		exec.Actions = append(exec.Actions, LogEntry{
			ActionID:     action.ID,
			ActionType:   action.Type,
			ActionConfig: deepCopyMap(action.Config),
			NextActionID: action.NextActionID,
		})
		if err := e.persist(ctx, exec); err != nil {
			return "", err
		}

		next, err := e.dispatch(ctx, exec, action)
		if err != nil {
			exec.Status = StatusError
			exec.Description = fmt.Sprintf("an error occurred while working action: %v", err)
			if persistErr := e.persist(ctx, exec); persistErr != nil {
				return "", persistErr
			}
			e.logger.Warn("action failed",
				"execution_id", exec.ID,
				"action_id", action.ID,
				"action_type", action.Type,
				"error", err,
			)
			e.finish(exec, started, steps)
			return OutcomeErrored, nil
		}

		currentID = next
	}
}

// dispatch performs one action's effect and returns the successor id.
func (e *Engine) dispatch(ctx context.Context, exec *Execution, action Action) (string, error) {
	switch action.Type {
	case ActionIf:
		// The segment here is action-scoped; it need not match the
		// trigger's segment.
		contentID := configString(action.Config, "contentId")
		inSegment, err := e.segments.IsInSegment(ctx, contentID, exec.TargetID)
		if err != nil {
			return "", fmt.Errorf("checking segment %q: %w", contentID, err)
		}
		if inSegment {
			return configString(action.Config, "yes"), nil
		}
		return configString(action.Config, "no"), nil

	case ActionGoTo:
		return configString(action.Config, "toId"), nil

	case ActionWait:
		// Only reached on a resume pass-through; generic advance.
		return action.NextActionID, nil

	default:
		handler, ok := e.handlers.Get(action.Type)
		if !ok {
			// Unknown types with no registered effect simply advance.
			e.logger.Debug("no handler for action type",
				"action_type", action.Type,
				"action_id", action.ID,
			)
			return action.NextActionID, nil
		}
		if err := handler(ctx, exec, action); err != nil {
			return "", err
		}
		return action.NextActionID, nil
	}
}

// persist saves the execution row, wrapping any failure.
func (e *Engine) persist(ctx context.Context, exec *Execution) error {
	if err := e.repo.UpdateExecution(ctx, exec); err != nil {
		return fmt.Errorf("persisting execution %s: %w", exec.ID, err)
	}
	return nil
}

// finish records telemetry and publishes a lifecycle event for a chain
// that reached a stopping point (terminal or waiting).
func (e *Engine) finish(exec *Execution, started time.Time, steps int) {
	durationMS := float64(time.Since(started).Milliseconds())

	if e.metrics != nil {
		e.metrics.WriteExecutionMetric(exec.AutomationID, string(exec.Status), durationMS, steps)
	}

	if e.events != nil {
		payload, err := json.Marshal(map[string]any{
			"execution_id":  exec.ID,
			"automation_id": exec.AutomationID,
			"target_id":     exec.TargetID,
			"status":        string(exec.Status),
			"description":   exec.Description,
		})
		if err != nil {
			return
		}
		topic := "relay/core/execution/" + exec.ID + "/" + string(exec.Status)
		if pubErr := e.events.Publish(topic, payload, 1, false); pubErr != nil {
			e.logger.Warn("failed to publish execution event",
				"execution_id", exec.ID,
				"error", pubErr,
			)
		}
	}

	e.logger.Info("execution advanced",
		"execution_id", exec.ID,
		"automation_id", exec.AutomationID,
		"status", exec.Status,
		"steps", steps,
		"duration_ms", durationMS,
	)
}
