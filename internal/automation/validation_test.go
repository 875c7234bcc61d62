package automation

import (
	"errors"
	"strings"
	"testing"
)

func validAutomation() *Automation {
	return &Automation{
		ID:     "auto-1",
		Name:   "Welcome flow",
		Status: AutomationActive,
		Triggers: []Trigger{
			{ID: "t1", Type: "customer:created", Config: TriggerConfig{ContentID: "seg-1", ActionID: "a1"}},
		},
		Actions: []Action{
			{ID: "a1", Type: ActionCreateTask, NextActionID: ""},
		},
	}
}

func TestValidateAutomation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Automation)
		wantErr error
	}{
		{
			name:    "valid automation",
			mutate:  func(*Automation) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(a *Automation) { a.Name = "  " },
			wantErr: ErrInvalidAutomation,
		},
		{
			name:    "name too long",
			mutate:  func(a *Automation) { a.Name = strings.Repeat("x", maxNameLength+1) },
			wantErr: ErrInvalidAutomation,
		},
		{
			name:    "unknown status",
			mutate:  func(a *Automation) { a.Status = "paused" },
			wantErr: ErrInvalidAutomation,
		},
		{
			name:    "trigger without id",
			mutate:  func(a *Automation) { a.Triggers[0].ID = "" },
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "trigger without type",
			mutate:  func(a *Automation) { a.Triggers[0].Type = "" },
			wantErr: ErrInvalidTrigger,
		},
		{
			name:    "action without id",
			mutate:  func(a *Automation) { a.Actions[0].ID = "" },
			wantErr: ErrInvalidAction,
		},
		{
			name:    "action without type",
			mutate:  func(a *Automation) { a.Actions[0].Type = "" },
			wantErr: ErrInvalidAction,
		},
		{
			name: "duplicate action ids",
			mutate: func(a *Automation) {
				a.Actions = append(a.Actions, Action{ID: "a1", Type: ActionWait})
			},
			wantErr: ErrInvalidAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAutomation()
			tt.mutate(a)

			err := ValidateAutomation(a)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateAutomation() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAutomation() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAutomation_Nil(t *testing.T) {
	if err := ValidateAutomation(nil); !errors.Is(err, ErrInvalidAutomation) {
		t.Errorf("ValidateAutomation(nil) = %v, want ErrInvalidAutomation", err)
	}
}

func TestGraphWarnings(t *testing.T) {
	a := &Automation{
		ID:   "auto-1",
		Name: "Holes",
		Triggers: []Trigger{
			{ID: "t1", Type: "x", Config: TriggerConfig{ActionID: "missing-start"}},
		},
		Actions: []Action{
			{ID: "a1", Type: ActionIf, Config: map[string]any{"yes": "a2", "no": "missing-no"}},
			{ID: "a2", Type: ActionGoTo, Config: map[string]any{"toId": "missing-target"}},
			{ID: "a3", Type: "NOOP", NextActionID: "missing-next"},
		},
	}

	warnings := GraphWarnings(a)
	if len(warnings) != 4 {
		t.Fatalf("warnings = %v, want 4 entries", warnings)
	}

	joined := strings.Join(warnings, "\n")
	for _, missing := range []string{"missing-start", "missing-no", "missing-target", "missing-next"} {
		if !strings.Contains(joined, missing) {
			t.Errorf("warnings missing mention of %q: %v", missing, warnings)
		}
	}
}

func TestGraphWarnings_CleanGraph(t *testing.T) {
	if warnings := GraphWarnings(validAutomation()); len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestBuildActionMap_LastWriteWins(t *testing.T) {
	m := BuildActionMap([]Action{
		{ID: "a1", Type: ActionWait},
		{ID: "a2", Type: ActionGoTo},
		{ID: "a1", Type: ActionCreateTask},
	})

	if len(m) != 2 {
		t.Fatalf("map size = %d, want 2", len(m))
	}
	if m["a1"].Type != ActionCreateTask {
		t.Errorf("a1 type = %q, want the later definition %q", m["a1"].Type, ActionCreateTask)
	}
}

func TestBuildActionMap_Empty(t *testing.T) {
	if m := BuildActionMap(nil); len(m) != 0 {
		t.Errorf("map size = %d, want 0", len(m))
	}
}

func TestTargetID(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"underscore id preferred", Target{"_id": "x", "id": "y"}, "x"},
		{"plain id fallback", Target{"id": "y"}, "y"},
		{"no id", Target{"name": "z"}, ""},
		{"non-string id ignored", Target{"_id": 42, "id": "y"}, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAutomationDeepCopy(t *testing.T) {
	a := validAutomation()
	a.Triggers[0].Config.ReEnrollmentRules = []string{"stage"}
	a.Actions[0].Config = map[string]any{"name": "hello"}

	cpy := a.DeepCopy()
	cpy.Triggers[0].Config.ReEnrollmentRules[0] = "mutated"
	cpy.Actions[0].Config["name"] = "mutated"

	if a.Triggers[0].Config.ReEnrollmentRules[0] != "stage" {
		t.Error("re-enrollment rules aliased between copy and original")
	}
	if a.Actions[0].Config["name"] != "hello" {
		t.Error("action config aliased between copy and original")
	}
}
