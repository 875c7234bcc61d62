package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// rpcRequest is the wire envelope for collaborator RPC calls.
//
// The engine publishes one of these to relay/rpc/request/{service}/{event};
// the owning service replies on ReplyTo with an rpcResponse carrying the
// same ID.
type rpcRequest struct {
	ID      string         `json:"id"`
	Service string         `json:"service"`
	Event   string         `json:"event"`
	ReplyTo string         `json:"reply_to"`
	Data    map[string]any `json:"data,omitempty"`
}

// rpcResponse is the wire envelope for collaborator RPC replies.
type rpcResponse struct {
	ID    string         `json:"id"`
	Error string         `json:"error,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Request performs a request/response call to a collaborator service over MQTT.
//
// It publishes the payload to relay/rpc/request/{service}/{event} with a
// correlation ID and reply topic, then blocks until the matching reply
// arrives or ctx expires. Callers should always pass a context with a
// deadline; a collaborator that never replies otherwise blocks forever.
//
// Parameters:
//   - ctx: Context carrying the per-call deadline
//   - service: Target service name (e.g., "segments", "boards")
//   - event: Request kind within the service (e.g., "isInSegment")
//   - payload: Request data, marshalled as JSON
//
// Returns:
//   - map[string]any: The reply data
//   - error: ErrRPCTimeout on deadline, ErrRPCFailed if the service
//     replied with an error, or a publish/subscribe failure
func (c *Client) Request(ctx context.Context, service, event string, payload map[string]any) (map[string]any, error) {
	if service == "" || event == "" {
		return nil, fmt.Errorf("%w: service and event are required", ErrRPCFailed)
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	if err := c.ensureRPCSubscription(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ch := make(chan rpcResponse, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	env := rpcRequest{
		ID:      id,
		Service: service,
		Event:   event,
		ReplyTo: Topics{}.RPCResponse(id),
		Data:    payload,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshalling rpc request: %w", err)
	}

	if err := c.Publish(Topics{}.RPCRequest(service, event), body, byte(c.cfg.QoS), false); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s/%s: %s", ErrRPCFailed, service, event, resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRPCTimeout, service, event)
		}
		return nil, ctx.Err()
	}
}

// ensureRPCSubscription subscribes once to the shared reply wildcard topic.
//
// All replies arrive on relay/rpc/response/{request_id}; the handler routes
// them to the pending channel for that ID. Late replies (after the caller
// timed out) are dropped.
func (c *Client) ensureRPCSubscription() error {
	c.pendingMu.Lock()
	subscribed := c.rpcSubscribed
	c.pendingMu.Unlock()

	if subscribed {
		return nil
	}

	err := c.Subscribe(Topics{}.AllRPCResponses(), byte(c.cfg.QoS), c.handleRPCResponse)
	if err != nil {
		return fmt.Errorf("subscribing to rpc responses: %w", err)
	}

	c.pendingMu.Lock()
	c.rpcSubscribed = true
	c.pendingMu.Unlock()

	return nil
}

// handleRPCResponse routes an incoming reply to its waiting request.
func (c *Client) handleRPCResponse(topic string, payload []byte) error {
	var resp rpcResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("unmarshalling rpc response on %q: %w", topic, err)
	}

	// Fall back to the topic suffix when the reply omits the ID.
	if resp.ID == "" {
		if idx := strings.LastIndex(topic, "/"); idx >= 0 {
			resp.ID = topic[idx+1:]
		}
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	c.pendingMu.Unlock()

	if !ok {
		// Caller gave up; nothing is waiting for this reply.
		return nil
	}

	select {
	case ch <- resp:
	default:
	}
	return nil
}
