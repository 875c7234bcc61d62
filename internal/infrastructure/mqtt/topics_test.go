package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"trigger", topics.Trigger("customer:created"), "relay/trigger/customer:created"},
		{"all triggers", topics.AllTriggers(), "relay/trigger/+"},
		{"rpc request", topics.RPCRequest("segments", "isInSegment"), "relay/rpc/request/segments/isInSegment"},
		{"rpc response", topics.RPCResponse("req-abc123"), "relay/rpc/response/req-abc123"},
		{"all rpc responses", topics.AllRPCResponses(), "relay/rpc/response/+"},
		{"execution event", topics.ExecutionEvent("exec-123", "waiting"), "relay/core/execution/exec-123/waiting"},
		{"system status", topics.SystemStatus(), "relay/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}
