package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteExecutionMetric records the outcome of a finished execution pass.
//
// This is the primary method for recording engine telemetry. One point is
// written per pass (initial run or resume), tagged by automation and final
// status so dashboards can break down throughput and failure rates.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - automationID: The automation the execution belongs to
//   - status: Final execution status ("complete", "waiting", "missid", "error")
//   - durationMs: Wall-clock duration of the pass in milliseconds
//   - steps: Number of actions worked during the pass
//
// Example:
//
//	client.WriteExecutionMetric("auto-1", "complete", 42.0, 3)
func (c *Client) WriteExecutionMetric(automationID string, status string, durationMs float64, steps int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"execution",
		map[string]string{
			"automation_id": automationID,
			"status":        status,
		},
		map[string]interface{}{
			"duration_ms": durationMs,
			"steps":       steps,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTriggerMetric records a trigger batch arriving at the dispatcher.
//
// Used for tracking inbound event volume per trigger type.
//
// Parameters:
//   - triggerType: The trigger type (e.g., "deal", "customer")
//   - targets: Number of targets carried by the event
func (c *Client) WriteTriggerMetric(triggerType string, targets int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"trigger",
		map[string]string{
			"trigger_type": triggerType,
		},
		map[string]interface{}{
			"targets": targets,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionMetric records a single action handler invocation.
//
// Used for per-action-type latency and failure tracking.
//
// Parameters:
//   - actionType: The action type (e.g., "IF", "CREATE_TASK")
//   - success: Whether the handler completed without error
//   - durationMs: Handler duration in milliseconds
func (c *Client) WriteActionMetric(actionType string, success bool, durationMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"action",
		map[string]string{
			"action_type": actionType,
			"success":     boolTag(success),
		},
		map[string]interface{}{
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "relay-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
