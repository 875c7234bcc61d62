package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Requester performs request/response calls to collaborator services.
// The MQTT client satisfies this; tests use an in-memory fake.
type Requester interface {
	Request(ctx context.Context, service, event string, payload map[string]any) (map[string]any, error)
}

// Handler performs one action's effect. Returning an error terminates
// the execution as errored; on nil the engine advances to the successor.
//
// Handlers may mutate the execution's Scratch state; the engine persists
// the row after the surrounding visit.
type Handler func(ctx context.Context, exec *Execution, action Action) error

// HandlerRegistry maps action types to handler implementations.
// The action type set is open: services can register handlers for their
// own types alongside the built-ins.
//
// All methods are thread-safe.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to an action type, replacing any existing one.
func (r *HandlerRegistry) Register(actionType string, handler Handler) {
	r.mu.Lock()
	r.handlers[actionType] = handler
	r.mu.Unlock()
}

// Get returns the handler for an action type, if one is registered.
func (r *HandlerRegistry) Get(actionType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[actionType]
	return handler, ok
}

// Count returns the number of registered handlers.
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// defaultHandlerTimeout bounds each remote handler invocation.
const defaultHandlerTimeout = 10 * time.Second

// createPrefix is stripped from CREATE_* action types to derive the
// board item type: "CREATE_DEAL" -> "deal".
const createPrefix = "CREATE_"

// RegisterDefaultHandlers wires the built-in action handlers over the
// given requester.
//
// SET_PROPERTY and the board-item creators call out to the service that
// owns the target entity; ADD_DEAL calls the cards service directly;
// REMOVE_DEAL is purely local to the execution's scratch state.
func RegisterDefaultHandlers(reg *HandlerRegistry, requester Requester, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}

	reg.Register(ActionSetProperty, setPropertyHandler(requester, timeout))

	boardItem := addBoardItemHandler(requester, timeout)
	reg.Register(ActionCreateTask, boardItem)
	reg.Register(ActionCreateTicket, boardItem)
	reg.Register(ActionCreateDeal, boardItem)

	reg.Register(ActionAddDeal, addDealHandler(requester, timeout))
	reg.Register(ActionRemoveDeal, removeDealHandler())
}

// setPropertyHandler mutates a property on the target entity via the
// service that owns it.
func setPropertyHandler(requester Requester, timeout time.Duration) Handler {
	return func(ctx context.Context, exec *Execution, action Action) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, err := requester.Request(ctx, serviceFor(exec.TriggerType), "setProperty", map[string]any{
			"triggerType":  exec.TriggerType,
			"actionConfig": action.Config,
			"target":       map[string]any(exec.Target),
		})
		if err != nil {
			return fmt.Errorf("setting property: %w", err)
		}
		return nil
	}
}

// addBoardItemHandler creates a task, ticket or deal on the cards
// service. The item type is derived from the action type.
func addBoardItemHandler(requester Requester, timeout time.Duration) Handler {
	return func(ctx context.Context, exec *Execution, action Action) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		itemType := strings.ToLower(strings.TrimPrefix(action.Type, createPrefix))

		_, err := requester.Request(ctx, "cards", "addBoardItem", map[string]any{
			"type":         itemType,
			"actionConfig": action.Config,
			"executionId":  exec.ID,
			"targetId":     exec.TargetID,
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", itemType, err)
		}

		if itemType == "deal" {
			if name := configString(action.Config, "name"); name != "" {
				exec.Scratch.Deals = append(exec.Scratch.Deals, name)
			}
		}
		return nil
	}
}

// addDealHandler calls the cards service to add a deal and records its
// name in the execution's scratch state.
func addDealHandler(requester Requester, timeout time.Duration) Handler {
	return func(ctx context.Context, exec *Execution, action Action) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, err := requester.Request(ctx, "cards", "addDeal", map[string]any{
			"actionConfig": action.Config,
			"executionId":  exec.ID,
			"targetId":     exec.TargetID,
		})
		if err != nil {
			return fmt.Errorf("adding deal: %w", err)
		}

		if name := configString(action.Config, "name"); name != "" {
			exec.Scratch.Deals = append(exec.Scratch.Deals, name)
		}
		return nil
	}
}

// removeDealHandler filters the configured names out of the execution's
// accumulated deal list. Purely local: the scratch state is owned by this
// execution and persisted with it, never shared across executions.
func removeDealHandler() Handler {
	return func(_ context.Context, exec *Execution, action Action) error {
		names := configStrings(action.Config, "names")
		if len(names) == 0 || len(exec.Scratch.Deals) == 0 {
			return nil
		}

		remove := make(map[string]struct{}, len(names))
		for _, name := range names {
			remove[name] = struct{}{}
		}

		kept := exec.Scratch.Deals[:0]
		for _, deal := range exec.Scratch.Deals {
			if _, drop := remove[deal]; !drop {
				kept = append(kept, deal)
			}
		}
		exec.Scratch.Deals = kept
		return nil
	}
}

// serviceFor derives the owning service name from a trigger type.
// Trigger types are "{service}:{event}" (e.g. "customer:created");
// a bare type is its own service.
func serviceFor(triggerType string) string {
	if idx := strings.Index(triggerType, ":"); idx > 0 {
		return triggerType[:idx]
	}
	return triggerType
}

// configStrings extracts a string list from an action config value,
// accepting both []string and JSON-decoded []any.
func configStrings(config map[string]any, key string) []string {
	if config == nil {
		return nil
	}

	switch v := config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
