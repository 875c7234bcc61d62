// Package mqtt provides the MQTT transport for Relay Automation Core.
//
// It wraps paho.mqtt.golang with connection management, automatic
// re-subscription after reconnects, Last Will and Testament publishing,
// and panic-safe message handlers.
//
// On top of plain publish/subscribe it implements the request/response
// pattern the engine uses to reach collaborator services (segment checks,
// property mutation, board-item creation): requests go out on
// relay/rpc/request/{service}/{event} with a correlation ID, replies come
// back on relay/rpc/response/{request_id}. See Client.Request.
//
// Topic layout is centralised in Topics so every publisher and subscriber
// agrees on the namespace:
//
//	relay/trigger/{type}                  inbound trigger events
//	relay/rpc/request/{service}/{event}   collaborator requests
//	relay/rpc/response/{request_id}       collaborator replies
//	relay/core/execution/{id}/{status}    execution lifecycle events
//	relay/system/status                   engine online/offline status
package mqtt
