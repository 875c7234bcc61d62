package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrNotWaiting) {
//	    // another resumer already claimed the execution
//	}
var (
	// ErrAutomationNotFound is returned when an automation ID does not exist.
	ErrAutomationNotFound = errors.New("automation: not found")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("automation: execution not found")

	// ErrNotWaiting is returned when resuming an execution that is not in
	// the waiting status (already claimed, terminal, or still active).
	ErrNotWaiting = errors.New("automation: execution not waiting")

	// ErrStepLimit is returned when a single advance chain exceeds the
	// configured step limit, indicating a runaway GO_TO cycle.
	ErrStepLimit = errors.New("automation: step limit exceeded")

	// ErrSegmentCheck is returned when segment membership cannot be
	// determined (remote call failed or timed out).
	ErrSegmentCheck = errors.New("automation: segment check failed")

	// ErrInvalidAutomation is returned when definition validation fails.
	ErrInvalidAutomation = errors.New("automation: invalid")

	// ErrInvalidTrigger is returned when a trigger definition is invalid.
	ErrInvalidTrigger = errors.New("automation: invalid trigger")

	// ErrInvalidAction is returned when an action definition is invalid.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrNoTarget is returned when a trigger event target has no id.
	ErrNoTarget = errors.New("automation: target has no id")
)
