package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used throughout the package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides read access to automation definitions with caching
// and thread safety. It wraps a Repository and adds an in-memory cache
// for fast trigger-time lookups.
//
// The cache is populated on startup via RefreshCache(). Definitions are
// owned by the authoring subsystem; the engine never writes them, so the
// cache only changes on refresh.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Automation // Cached definitions by ID
	cacheMu sync.RWMutex           // Protects cache
	logger  Logger
}

// NewRegistry creates a new automation registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Automation),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all active automations from the repository into
// the cache, logging any graph warnings found in the definitions.
// This should be called on application startup and whenever the
// authoring subsystem signals a change.
func (r *Registry) RefreshCache(ctx context.Context) error {
	automations, err := r.repo.ListActiveAutomations(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Automation, len(automations))
	for i := range automations {
		a := automations[i]
		r.cache[a.ID] = a.DeepCopy()

		for _, warning := range GraphWarnings(&a) {
			r.logger.Warn("automation graph warning", "automation_id", a.ID, "detail", warning)
		}
	}

	r.logger.Info("automation cache refreshed", "count", len(automations))
	return nil
}

// GetAutomation retrieves an automation by ID.
// The returned automation is a deep copy; callers can safely modify it.
// Cache misses fall back to the repository so executions can still be
// resumed after their definition was archived.
func (r *Registry) GetAutomation(ctx context.Context, id string) (*Automation, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	return r.repo.GetAutomation(ctx, id)
}

// ListActiveByTriggerType retrieves all active automations with at least
// one trigger of the given type. Returns deep copies sorted by name for
// deterministic dispatch ordering.
func (r *Registry) ListActiveByTriggerType(triggerType string) []Automation {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var automations []Automation
	for _, a := range r.cache {
		if a.Status != AutomationActive {
			continue
		}
		for _, trigger := range a.Triggers {
			if trigger.Type == triggerType {
				automations = append(automations, *a.DeepCopy())
				break
			}
		}
	}

	sort.Slice(automations, func(i, j int) bool {
		return automations[i].Name < automations[j].Name
	})
	return automations
}

// Count returns the number of cached automations.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
