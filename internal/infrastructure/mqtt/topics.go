package mqtt

import "fmt"

// Topic prefixes for the Relay MQTT namespace.
//
// Trigger topics carry inbound events from upstream producers; rpc topics
// implement request/response calls to collaborator services; core topics
// carry events published by the engine itself.
const (
	// TopicPrefix is the base for all Relay topics.
	TopicPrefix = "relay"

	// TopicPrefixCore is the base for engine-published topics.
	TopicPrefixCore = "relay/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "relay/system"
)

// Topics provides builders for Relay MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.Trigger("customer:created")
//	// Returns: "relay/trigger/customer:created"
type Topics struct{}

// Trigger returns the topic on which events of one trigger type arrive.
//
// Example: relay/trigger/customer:created
func (Topics) Trigger(triggerType string) string {
	return fmt.Sprintf("%s/trigger/%s", TopicPrefix, triggerType)
}

// AllTriggers returns a pattern matching every trigger topic.
//
// Pattern: relay/trigger/+
func (Topics) AllTriggers() string {
	return fmt.Sprintf("%s/trigger/+", TopicPrefix)
}

// RPCRequest returns the topic a collaborator service listens on for one
// kind of request.
//
// Example: relay/rpc/request/segments/isInSegment
func (Topics) RPCRequest(service, event string) string {
	return fmt.Sprintf("%s/rpc/request/%s/%s", TopicPrefix, service, event)
}

// RPCResponse returns the reply topic for a single in-flight request.
//
// Example: relay/rpc/response/req-abc123
func (Topics) RPCResponse(requestID string) string {
	return fmt.Sprintf("%s/rpc/response/%s", TopicPrefix, requestID)
}

// AllRPCResponses returns a pattern matching every RPC reply topic.
//
// Pattern: relay/rpc/response/+
func (Topics) AllRPCResponses() string {
	return fmt.Sprintf("%s/rpc/response/+", TopicPrefix)
}

// ExecutionEvent returns the topic for execution lifecycle events.
//
// Example: relay/core/execution/exec-123/waiting
func (Topics) ExecutionEvent(executionID, status string) string {
	return fmt.Sprintf("%s/execution/%s/%s", TopicPrefixCore, executionID, status)
}

// SystemStatus returns the system status topic.
//
// Example: relay/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
