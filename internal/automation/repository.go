package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for automation and execution persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Automation definitions (read-only to the engine; SaveAutomation
	// exists for seeding and the authoring subsystem's sync)
	GetAutomation(ctx context.Context, id string) (*Automation, error)
	ListActiveAutomations(ctx context.Context) ([]Automation, error)
	SaveAutomation(ctx context.Context, a *Automation) error

	// Execution audit rows
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	LatestExecution(ctx context.Context, automationID, triggerID, targetID string) (*Execution, error)
	ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error)

	// ClaimWaiting atomically moves a waiting execution to active so that
	// two resumers cannot both advance it. Returns ErrNotWaiting when the
	// execution exists but is not waiting (already claimed or terminal).
	ClaimWaiting(ctx context.Context, id string) (*Execution, error)

	// ListWaiting returns waiting executions ordered by oldest wait start.
	ListWaiting(ctx context.Context, limit int) ([]Execution, error)
}

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `id, name, status, triggers, actions, created_at, updated_at`

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, automation_id, trigger_id, trigger_type, trigger_config,
			target_id, target, status, waiting_action_id, start_waiting_date,
			description, actions, scratch, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetAutomation retrieves an automation definition by its identifier.
func (r *SQLiteRepository) GetAutomation(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAutomationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("querying automation by id: %w", err)
	}
	return a, nil
}

// ListActiveAutomations retrieves all automations with status "active",
// ordered by name for deterministic iteration.
func (r *SQLiteRepository) ListActiveAutomations(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE status = ? ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, string(AutomationActive))
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, scanErr := scanAutomationRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// SaveAutomation inserts or replaces an automation definition.
func (r *SQLiteRepository) SaveAutomation(ctx context.Context, a *Automation) error {
	triggersJSON, err := json.Marshal(a.Triggers)
	if err != nil {
		return fmt.Errorf("marshalling triggers: %w", err)
	}
	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT OR REPLACE INTO automations (
			id, name, status, triggers, actions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		string(a.Status),
		string(triggersJSON),
		string(actionsJSON),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting automation: %w", err)
	}
	return nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	configJSON, targetJSON, actionsJSON, scratchJSON, err := marshalExecutionDocs(exec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = now
	}
	exec.UpdatedAt = now

	query := `
		INSERT INTO executions (
			id, automation_id, trigger_id, trigger_type, trigger_config,
			target_id, target, status, waiting_action_id, start_waiting_date,
			description, actions, scratch, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.AutomationID,
		exec.TriggerID,
		exec.TriggerType,
		configJSON,
		exec.TargetID,
		targetJSON,
		string(exec.Status),
		nullableString(exec.WaitingActionID),
		nullableTime(exec.StartWaitingDate),
		exec.Description,
		actionsJSON,
		scratchJSON,
		exec.CreatedAt.Format(time.RFC3339),
		exec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	_, targetJSON, actionsJSON, scratchJSON, err := marshalExecutionDocs(exec)
	if err != nil {
		return err
	}

	exec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE executions SET
			target = ?, status = ?, waiting_action_id = ?, start_waiting_date = ?,
			description = ?, actions = ?, scratch = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		targetJSON,
		string(exec.Status),
		nullableString(exec.WaitingActionID),
		nullableTime(exec.StartWaitingDate),
		exec.Description,
		actionsJSON,
		scratchJSON,
		exec.UpdatedAt.Format(time.RFC3339),
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// LatestExecution retrieves the most recent execution for a
// (automation, trigger, target) combination, by creation time descending.
// Used by the evaluator for enrollment decisions.
func (r *SQLiteRepository) LatestExecution(ctx context.Context, automationID, triggerID, targetID string) (*Execution, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE automation_id = ? AND trigger_id = ? AND target_id = ?
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, automationID, triggerID, targetID)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying latest execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions for an automation.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE automation_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ClaimWaiting atomically transitions a waiting execution to active.
//
// The UPDATE's status guard is the compare-and-swap: of two concurrent
// resumers exactly one observes a row change; the other gets ErrNotWaiting.
// The returned execution still carries its waiting_action_id so the caller
// knows where to resume from.
func (r *SQLiteRepository) ClaimWaiting(ctx context.Context, id string) (*Execution, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE executions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(StatusActive),
		time.Now().UTC().Format(time.RFC3339),
		id,
		string(StatusWaiting),
	)
	if err != nil {
		return nil, fmt.Errorf("claiming execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish "missing" from "not waiting"
		if _, getErr := r.GetExecution(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrNotWaiting
	}

	return r.GetExecution(ctx, id)
}

// ListWaiting retrieves waiting executions ordered by oldest wait start.
// The sweeper decides dueness from each wait action's config.
func (r *SQLiteRepository) ListWaiting(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = ?
		ORDER BY start_waiting_date
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(StatusWaiting), limit)
	if err != nil {
		return nil, fmt.Errorf("querying waiting executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// collectExecutions drains a query result into a slice.
func collectExecutions(rows *sql.Rows) ([]Execution, error) {
	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomationRow(scanner rowScanner) (*Automation, error) {
	var a Automation
	var status, triggersJSON, actionsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&status,
		&triggersJSON,
		&actionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = AutomationStatus(status)

	if triggersJSON != "" && triggersJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(triggersJSON), &a.Triggers); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling triggers: %w", jsonErr)
		}
	}
	if a.Triggers == nil {
		a.Triggers = []Trigger{}
	}

	if actionsJSON != "" && actionsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(actionsJSON), &a.Actions); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling actions: %w", jsonErr)
		}
	}
	if a.Actions == nil {
		a.Actions = []Action{}
	}

	// Parse timestamps (stored as RFC3339 TEXT)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		a.UpdatedAt = t
	}

	return &a, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var e Execution
	var status string
	var configJSON, targetJSON, actionsJSON, scratchJSON string
	var waitingActionID, startWaitingDate sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&e.ID,
		&e.AutomationID,
		&e.TriggerID,
		&e.TriggerType,
		&configJSON,
		&e.TargetID,
		&targetJSON,
		&status,
		&waitingActionID,
		&startWaitingDate,
		&e.Description,
		&actionsJSON,
		&scratchJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)

	if waitingActionID.Valid {
		e.WaitingActionID = &waitingActionID.String
	}
	if startWaitingDate.Valid {
		if t, parseErr := time.Parse(time.RFC3339, startWaitingDate.String); parseErr == nil {
			e.StartWaitingDate = &t
		}
	}

	if configJSON != "" && configJSON != "null" {
		if jsonErr := json.Unmarshal([]byte(configJSON), &e.TriggerConfig); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling trigger config: %w", jsonErr)
		}
	}
	if targetJSON != "" && targetJSON != "null" {
		if jsonErr := json.Unmarshal([]byte(targetJSON), &e.Target); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling target: %w", jsonErr)
		}
	}
	if actionsJSON != "" && actionsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(actionsJSON), &e.Actions); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling action log: %w", jsonErr)
		}
	}
	if e.Actions == nil {
		e.Actions = []LogEntry{}
	}
	if scratchJSON != "" && scratchJSON != "null" && scratchJSON != "{}" {
		if jsonErr := json.Unmarshal([]byte(scratchJSON), &e.Scratch); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling scratch: %w", jsonErr)
		}
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		e.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		e.UpdatedAt = t
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

// marshalExecutionDocs encodes an execution's nested documents for storage.
func marshalExecutionDocs(exec *Execution) (configJSON, targetJSON, actionsJSON, scratchJSON string, err error) {
	config, err := json.Marshal(exec.TriggerConfig)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshalling trigger config: %w", err)
	}
	target, err := json.Marshal(exec.Target)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshalling target: %w", err)
	}

	log := exec.Actions
	if log == nil {
		log = []LogEntry{}
	}
	actions, err := json.Marshal(log)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshalling action log: %w", err)
	}

	scratch, err := json.Marshal(exec.Scratch)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshalling scratch: %w", err)
	}

	return string(config), string(target), string(actions), string(scratch), nil
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
