package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100
	maxActions    = 200
	maxTriggers   = 20
)

// Pre-computed validation set for O(1) status lookups.
var validStatuses = map[AutomationStatus]struct{}{
	AutomationActive:   {},
	AutomationDraft:    {},
	AutomationArchived: {},
}

// ValidateAutomation performs comprehensive validation on a definition.
// Returns an error describing the first validation failure found.
//
// Dangling successor references are deliberately NOT an error here: the
// walker tolerates them at runtime (missid). Use GraphWarnings for
// load-time diagnostics.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return ErrInvalidAutomation
	}

	trimmed := strings.TrimSpace(a.Name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAutomation)
	}
	if len(a.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAutomation, maxNameLength)
	}

	if a.Status != "" {
		if _, ok := validStatuses[a.Status]; !ok {
			return fmt.Errorf("%w: invalid status %q", ErrInvalidAutomation, a.Status)
		}
	}

	if len(a.Triggers) > maxTriggers {
		return fmt.Errorf("%w: exceeds maximum of %d triggers", ErrInvalidTrigger, maxTriggers)
	}
	for i, trigger := range a.Triggers {
		if err := ValidateTrigger(trigger); err != nil {
			return fmt.Errorf("trigger[%d]: %w", i, err)
		}
	}

	if len(a.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}

	seen := make(map[string]struct{}, len(a.Actions))
	for i, action := range a.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
		if _, dup := seen[action.ID]; dup {
			return fmt.Errorf("%w: duplicate action id %q", ErrInvalidAction, action.ID)
		}
		seen[action.ID] = struct{}{}
	}

	return nil
}

// ValidateTrigger checks if a trigger definition is valid.
func ValidateTrigger(trigger Trigger) error {
	if trigger.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTrigger)
	}
	if trigger.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidTrigger)
	}
	return nil
}

// ValidateAction checks if an action definition is valid.
func ValidateAction(action Action) error {
	if action.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAction)
	}
	if action.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidAction)
	}
	return nil
}

// GraphWarnings returns diagnostics for successor references that do not
// resolve within the automation's action map. These are warnings rather
// than errors: the walker handles dangling ids at runtime by terminating
// the execution as missid.
func GraphWarnings(a *Automation) []string {
	if a == nil {
		return nil
	}

	actionsMap := BuildActionMap(a.Actions)
	var warnings []string

	check := func(from, field, id string) {
		if id == "" {
			return
		}
		if _, ok := actionsMap[id]; !ok {
			warnings = append(warnings, fmt.Sprintf("%s %s references missing action %q", from, field, id))
		}
	}

	for _, trigger := range a.Triggers {
		check("trigger "+trigger.ID, "actionId", trigger.Config.ActionID)
	}

	for _, action := range a.Actions {
		check("action "+action.ID, "nextActionId", action.NextActionID)

		switch action.Type {
		case ActionIf:
			check("action "+action.ID, "yes", configString(action.Config, "yes"))
			check("action "+action.ID, "no", configString(action.Config, "no"))
		case ActionGoTo:
			check("action "+action.ID, "toId", configString(action.Config, "toId"))
		}
	}

	return warnings
}

// configString extracts a string value from an action config map.
// Returns "" when the key is absent or not a string.
func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	s, _ := config[key].(string)
	return s
}

// GenerateID creates a new UUID for an execution or request.
func GenerateID() string {
	return uuid.New().String()
}
