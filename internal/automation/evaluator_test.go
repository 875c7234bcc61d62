package automation

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func setupEvaluator(t *testing.T) (*Evaluator, *mockRepository, *mockSegments) {
	t.Helper()

	repo := newMockRepository()
	segments := newMockSegments()
	evaluator := NewEvaluator(repo, segments, noopLogger{})
	return evaluator, repo, segments
}

func testTrigger(reEnrollment bool, rules ...string) Trigger {
	return Trigger{
		ID:   "t1",
		Type: "customer:created",
		Config: TriggerConfig{
			ContentID:         "seg-1",
			ActionID:          "a1",
			ReEnrollment:      reEnrollment,
			ReEnrollmentRules: rules,
		},
	}
}

func TestEvaluator_NotInSegment(t *testing.T) {
	evaluator, repo, _ := setupEvaluator(t)

	exec, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), Target{"_id": "c1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if exec != nil {
		t.Errorf("execution = %v, want nil", exec)
	}
	if len(repo.order) != 0 {
		t.Errorf("executions created = %d, want 0", len(repo.order))
	}
}

func TestEvaluator_FirstEnrollment(t *testing.T) {
	evaluator, repo, segments := setupEvaluator(t)
	segments.set("seg-1", "c1", true)

	exec, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), Target{"_id": "c1", "stage": "new"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if exec == nil {
		t.Fatal("execution = nil, want a new enrollment")
	}
	if exec.Status != StatusActive {
		t.Errorf("status = %q, want %q", exec.Status, StatusActive)
	}
	if exec.TargetID != "c1" {
		t.Errorf("targetID = %q, want c1", exec.TargetID)
	}
	if exec.Target["stage"] != "new" {
		t.Errorf("target snapshot missing stage attribute: %v", exec.Target)
	}
	if len(repo.order) != 1 {
		t.Errorf("executions created = %d, want exactly 1", len(repo.order))
	}
}

func TestEvaluator_AlreadyEnrolled(t *testing.T) {
	evaluator, repo, segments := setupEvaluator(t)
	segments.set("seg-1", "c1", true)

	target := Target{"_id": "c1", "stage": "new"}
	if _, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), target); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}

	exec, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), target)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if exec != nil {
		t.Error("second enrollment created without re-enrollment rules")
	}
	if len(repo.order) != 1 {
		t.Errorf("executions = %d, want 1", len(repo.order))
	}
}

func TestEvaluator_ReEnrollment(t *testing.T) {
	tests := []struct {
		name       string
		firstStage string
		nextStage  string
		wantNew    bool
	}{
		{"unchanged attribute blocks re-enrollment", "new", "new", false},
		{"changed attribute permits re-enrollment", "new", "qualified", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator, repo, segments := setupEvaluator(t)
			segments.set("seg-1", "c1", true)
			trigger := testTrigger(true, "stage")

			if _, err := evaluator.Evaluate(context.Background(), "auto-1", trigger,
				Target{"_id": "c1", "stage": tt.firstStage}); err != nil {
				t.Fatalf("first Evaluate: %v", err)
			}

			exec, err := evaluator.Evaluate(context.Background(), "auto-1", trigger,
				Target{"_id": "c1", "stage": tt.nextStage})
			if err != nil {
				t.Fatalf("second Evaluate: %v", err)
			}

			if tt.wantNew && exec == nil {
				t.Fatal("expected a re-enrollment execution")
			}
			if !tt.wantNew && exec != nil {
				t.Fatal("unexpected re-enrollment execution")
			}

			wantCount := 1
			if tt.wantNew {
				wantCount = 2
			}
			if len(repo.order) != wantCount {
				t.Errorf("executions = %d, want %d", len(repo.order), wantCount)
			}
		})
	}
}

func TestEvaluator_ReEnrollmentFlagWithoutRules(t *testing.T) {
	evaluator, repo, segments := setupEvaluator(t)
	segments.set("seg-1", "c1", true)
	trigger := testTrigger(true) // no rules

	if _, err := evaluator.Evaluate(context.Background(), "auto-1", trigger, Target{"_id": "c1", "stage": "new"}); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}

	exec, err := evaluator.Evaluate(context.Background(), "auto-1", trigger, Target{"_id": "c1", "stage": "other"})
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if exec != nil {
		t.Error("re-enrollment without rules should not create an execution")
	}
	if len(repo.order) != 1 {
		t.Errorf("executions = %d, want 1", len(repo.order))
	}
}

func TestEvaluator_SegmentCheckFailureRecordsErrorExecution(t *testing.T) {
	evaluator, repo, segments := setupEvaluator(t)
	segments.err = errors.New("segments unreachable")

	exec, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), Target{"_id": "c1"})
	if !errors.Is(err, ErrSegmentCheck) {
		t.Fatalf("Evaluate error = %v, want ErrSegmentCheck", err)
	}
	if exec != nil {
		t.Error("execution returned despite segment failure")
	}

	// The attempt is still recorded for audit.
	if len(repo.order) != 1 {
		t.Fatalf("executions = %d, want 1 audit row", len(repo.order))
	}
	stored, _ := repo.GetExecution(context.Background(), repo.order[0])
	if stored.Status != StatusError {
		t.Errorf("status = %q, want %q", stored.Status, StatusError)
	}
	if !strings.Contains(stored.Description, "segments unreachable") {
		t.Errorf("description = %q, want the remote failure message", stored.Description)
	}
}

func TestEvaluator_TargetWithoutID(t *testing.T) {
	evaluator, _, _ := setupEvaluator(t)

	_, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(false), Target{"name": "anonymous"})
	if !errors.Is(err, ErrNoTarget) {
		t.Errorf("Evaluate error = %v, want ErrNoTarget", err)
	}
}

func TestEvaluator_SnapshotNotAliased(t *testing.T) {
	evaluator, repo, segments := setupEvaluator(t)
	segments.set("seg-1", "c1", true)

	target := Target{"_id": "c1", "stage": "new"}
	exec, err := evaluator.Evaluate(context.Background(), "auto-1", testTrigger(true, "stage"), target)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Mutating the caller's target must not change the stored snapshot.
	target["stage"] = "mutated"

	stored, _ := repo.GetExecution(context.Background(), exec.ID)
	if stored.Target["stage"] != "new" {
		t.Errorf("snapshot stage = %v, want new", stored.Target["stage"])
	}
}
