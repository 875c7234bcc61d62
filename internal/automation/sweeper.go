package automation

import (
	"context"
	"errors"
	"time"
)

// Wait config unit names.
const (
	waitUnitMinute = "minute"
	waitUnitHour   = "hour"
	waitUnitDay    = "day"
)

// Sweeper periodically resumes waiting executions whose wait duration
// has elapsed. The wait deadline is derived from the WAIT action's
// config ({"value": n, "type": "minute"|"hour"|"day"}) and the
// execution's start waiting date.
//
// Resume safety comes from Engine.Resume's compare-and-swap claim:
// overlapping sweeps, or a sweep racing a manual resume via the API,
// leave at most one winner per execution.
type Sweeper struct {
	repo     Repository
	registry *Registry
	engine   *Engine
	interval time.Duration
	batch    int
	logger   Logger
}

// NewSweeper creates a wait sweeper.
//
// Parameters:
//   - repo: Repository for listing waiting executions
//   - registry: Automation definitions for wait config lookup
//   - engine: Engine whose Resume drives the continuation
//   - interval: Time between sweeps
//   - batch: Maximum executions examined per sweep
//   - logger: Logger instance (nil for no logging)
func NewSweeper(repo Repository, registry *Registry, engine *Engine, interval time.Duration, batch int, logger Logger) *Sweeper {
	if logger == nil {
		logger = noopLogger{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		repo:     repo,
		registry: registry,
		engine:   engine,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to be launched as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resumed, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("wait sweep failed", "error", err)
				continue
			}
			if resumed > 0 {
				s.logger.Info("wait sweep resumed executions", "count", resumed)
			}
		}
	}
}

// Sweep examines waiting executions once and resumes those that are due.
// Returns the number of executions resumed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	waiting, err := s.repo.ListWaiting(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	resumed := 0

	for i := range waiting {
		exec := &waiting[i]

		due, dueErr := s.isDue(ctx, exec, now)
		if dueErr != nil {
			s.logger.Warn("cannot determine wait deadline",
				"execution_id", exec.ID,
				"error", dueErr,
			)
			continue
		}
		if !due {
			continue
		}

		if _, resumeErr := s.engine.Resume(ctx, exec.ID); resumeErr != nil {
			// Lost the claim race; another resumer got there first.
			if errors.Is(resumeErr, ErrNotWaiting) {
				continue
			}
			s.logger.Error("resume failed",
				"execution_id", exec.ID,
				"error", resumeErr,
			)
			continue
		}
		resumed++
	}

	return resumed, nil
}

// isDue reports whether the execution's wait deadline has passed.
func (s *Sweeper) isDue(ctx context.Context, exec *Execution, now time.Time) (bool, error) {
	if exec.WaitingActionID == nil || exec.StartWaitingDate == nil {
		// Inconsistent row: resume immediately so the engine surfaces it.
		return true, nil
	}

	automation, err := s.registry.GetAutomation(ctx, exec.AutomationID)
	if err != nil {
		return false, err
	}

	action, ok := BuildActionMap(automation.Actions)[*exec.WaitingActionID]
	if !ok {
		// The wait action vanished from the definition; resuming will
		// terminate the execution as missid, which is the right record.
		return true, nil
	}

	duration := waitDuration(action.Config)
	return !now.Before(exec.StartWaitingDate.Add(duration)), nil
}

// waitDuration converts a WAIT action config into a duration.
// Unknown or missing units fall back to minutes.
func waitDuration(config map[string]any) time.Duration {
	value := configNumber(config, "value")
	if value <= 0 {
		return 0
	}

	switch configString(config, "type") {
	case waitUnitHour:
		return time.Duration(value * float64(time.Hour))
	case waitUnitDay:
		return time.Duration(value * 24 * float64(time.Hour))
	case waitUnitMinute:
		return time.Duration(value * float64(time.Minute))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}

// configNumber extracts a numeric value from an action config, accepting
// the types JSON decoding produces.
func configNumber(config map[string]any, key string) float64 {
	if config == nil {
		return 0
	}
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
