package automation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// SegmentChecker answers "is target T currently a member of segment S?"
// via a remote call. There is no local caching: a decision must reflect
// current membership, so every call is a fresh check.
type SegmentChecker interface {
	IsInSegment(ctx context.Context, segmentID, targetID string) (bool, error)
}

// Evaluator decides, for a (trigger, target) pair, whether a new
// Execution should be created, honouring re-enrollment rules and segment
// membership.
type Evaluator struct {
	repo     Repository
	segments SegmentChecker
	logger   Logger
}

// NewEvaluator creates a new enrollment evaluator.
func NewEvaluator(repo Repository, segments SegmentChecker, logger Logger) *Evaluator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Evaluator{
		repo:     repo,
		segments: segments,
		logger:   logger,
	}
}

// Evaluate decides whether the target enrolls into the trigger.
//
// Returns a new ACTIVE execution when enrollment succeeds, or nil when
// the target does not qualify (not in segment, already enrolled, or
// re-enrollment attributes unchanged).
//
// When the segment check itself fails an ERROR execution is still
// recorded, preserving an audit trail of attempted enrollments that
// could not be evaluated, and ErrSegmentCheck is returned.
func (ev *Evaluator) Evaluate(ctx context.Context, automationID string, trigger Trigger, target Target) (*Execution, error) {
	targetID := target.ID()
	if targetID == "" {
		return nil, ErrNoTarget
	}

	inSegment, err := ev.segments.IsInSegment(ctx, trigger.Config.ContentID, targetID)
	if err != nil {
		exec := newExecution(automationID, trigger, targetID, target)
		exec.Status = StatusError
		exec.Description = fmt.Sprintf("an error occurred while checking segment membership: %v", err)
		if createErr := ev.repo.CreateExecution(ctx, exec); createErr != nil {
			ev.logger.Error("failed to record segment check failure",
				"automation_id", automationID,
				"trigger_id", trigger.ID,
				"target_id", targetID,
				"error", createErr,
			)
		}
		return nil, fmt.Errorf("%w: %w", ErrSegmentCheck, err)
	}
	if !inSegment {
		return nil, nil
	}

	latest, err := ev.repo.LatestExecution(ctx, automationID, trigger.ID, targetID)
	if err != nil && !errors.Is(err, ErrExecutionNotFound) {
		return nil, fmt.Errorf("loading latest execution: %w", err)
	}

	// First enrollment: no prior execution for this combination.
	if latest == nil {
		return ev.enroll(ctx, automationID, trigger, targetID, target)
	}

	// Already enrolled and not eligible again.
	if !trigger.Config.ReEnrollment || len(trigger.Config.ReEnrollmentRules) == 0 {
		return nil, nil
	}

	// Re-enroll only when a watched attribute changed since the snapshot.
	if !attributesChanged(trigger.Config.ReEnrollmentRules, latest.Target, target) {
		return nil, nil
	}

	return ev.enroll(ctx, automationID, trigger, targetID, target)
}

// enroll creates and persists a new active execution.
func (ev *Evaluator) enroll(ctx context.Context, automationID string, trigger Trigger, targetID string, target Target) (*Execution, error) {
	exec := newExecution(automationID, trigger, targetID, target)
	exec.Status = StatusActive
	exec.Description = "met enrollment criteria"

	if err := ev.repo.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("creating execution: %w", err)
	}

	ev.logger.Info("target enrolled",
		"automation_id", automationID,
		"trigger_id", trigger.ID,
		"target_id", targetID,
		"execution_id", exec.ID,
	)
	return exec, nil
}

// newExecution builds an execution with enrollment-time snapshots.
func newExecution(automationID string, trigger Trigger, targetID string, target Target) *Execution {
	now := time.Now().UTC()
	cfg := trigger.Config
	if cfg.ReEnrollmentRules != nil {
		rules := make([]string, len(cfg.ReEnrollmentRules))
		copy(rules, cfg.ReEnrollmentRules)
		cfg.ReEnrollmentRules = rules
	}

	return &Execution{
		ID:            GenerateID(),
		AutomationID:  automationID,
		TriggerID:     trigger.ID,
		TriggerType:   trigger.Type,
		TriggerConfig: cfg,
		TargetID:      targetID,
		Target:        target.DeepCopy(),
		Actions:       []LogEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// attributesChanged reports whether any named attribute differs between
// the stored snapshot and the current target.
func attributesChanged(rules []string, snapshot, current Target) bool {
	for _, attr := range rules {
		if !reflect.DeepEqual(snapshot[attr], current[attr]) {
			return true
		}
	}
	return false
}
