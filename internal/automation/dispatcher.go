package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Dispatcher is the entry point invoked by upstream event producers.
// It fans a single trigger event out to every active automation whose
// trigger type matches, and drives the evaluator and engine for each
// (automation, trigger, target) combination.
//
// Side effects are fully isolated per combination: an error in one never
// aborts processing of the others. The dispatcher has no synchronous
// caller to report to; failures land on execution rows and in the log.
type Dispatcher struct {
	registry  *Registry
	evaluator *Evaluator
	engine    *Engine
	metrics   TriggerMetricsRecorder // optional, set via SetMetrics
	logger    Logger
}

// TriggerMetricsRecorder records inbound trigger volume telemetry.
type TriggerMetricsRecorder interface {
	WriteTriggerMetric(triggerType string, targets int)
}

// triggerEvent is the wire shape of an inbound trigger message.
type triggerEvent struct {
	Type    string   `json:"type"`
	Targets []Target `json:"targets"`
}

// NewDispatcher creates a new trigger dispatcher.
func NewDispatcher(registry *Registry, evaluator *Evaluator, engine *Engine, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		registry:  registry,
		evaluator: evaluator,
		engine:    engine,
		logger:    logger,
	}
}

// SetMetrics sets a recorder for trigger volume telemetry.
func (d *Dispatcher) SetMetrics(metrics TriggerMetricsRecorder) {
	d.metrics = metrics
}

// Receive processes one trigger event against all matching automations.
//
// For each target, independently: every active automation with a trigger
// of this type is evaluated for enrollment, and each produced execution
// is advanced from the trigger's configured first action.
func (d *Dispatcher) Receive(ctx context.Context, triggerType string, targets []Target) {
	if triggerType == "" || len(targets) == 0 {
		return
	}

	automations := d.registry.ListActiveByTriggerType(triggerType)

	d.logger.Debug("trigger received",
		"trigger_type", triggerType,
		"targets", len(targets),
		"automations", len(automations),
	)

	for _, target := range targets {
		for i := range automations {
			d.dispatchOne(ctx, &automations[i], triggerType, target)
		}
	}
}

// dispatchOne evaluates and advances one (automation, target) pair for
// every matching trigger. Failures are logged and isolated.
func (d *Dispatcher) dispatchOne(ctx context.Context, automation *Automation, triggerType string, target Target) {
	actionsMap := BuildActionMap(automation.Actions)

	for _, trigger := range automation.Triggers {
		if trigger.Type != triggerType {
			continue
		}

		exec, err := d.evaluator.Evaluate(ctx, automation.ID, trigger, target)
		if err != nil {
			// Segment check failures are already recorded on an
			// execution row; anything else is infrastructure.
			if !errors.Is(err, ErrSegmentCheck) {
				d.logger.Error("enrollment evaluation failed",
					"automation_id", automation.ID,
					"trigger_id", trigger.ID,
					"target_id", target.ID(),
					"error", err,
				)
			}
			continue
		}
		if exec == nil {
			continue
		}

		outcome, err := d.engine.Advance(ctx, exec, actionsMap, trigger.Config.ActionID)
		if err != nil {
			d.logger.Error("execution advance failed",
				"automation_id", automation.ID,
				"execution_id", exec.ID,
				"error", err,
			)
			continue
		}

		d.logger.Debug("execution advanced",
			"automation_id", automation.ID,
			"execution_id", exec.ID,
			"outcome", string(outcome),
		)
	}
}

// HandleTriggerMessage parses an inbound MQTT trigger message and feeds
// it to Receive. Designed to be subscribed directly on relay/trigger/+;
// when the payload omits the type, the topic suffix supplies it.
func (d *Dispatcher) HandleTriggerMessage(topic string, payload []byte) error {
	var event triggerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshalling trigger event on %q: %w", topic, err)
	}

	if event.Type == "" {
		if idx := strings.LastIndex(topic, "/"); idx >= 0 {
			event.Type = topic[idx+1:]
		}
	}
	if event.Type == "" {
		return fmt.Errorf("trigger event on %q has no type", topic)
	}

	if d.metrics != nil {
		d.metrics.WriteTriggerMetric(event.Type, len(event.Targets))
	}

	d.Receive(context.Background(), event.Type, event.Targets)
	return nil
}
