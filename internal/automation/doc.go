// Package automation provides the execution engine for Relay Automation Core.
//
// Automations are stored definitions of one or more triggers and a directed
// graph of actions. When an external event arrives, the dispatcher fans it
// out to every active automation whose trigger type matches, the evaluator
// decides whether the target should enroll, and the engine walks the action
// graph until it finishes, parks at a wait action, errors, or hits a dead
// link. Every run is persisted as an Execution audit row.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────────┐
//	│               Dispatcher (dispatcher.go)                   │
//	│  Fans one trigger event out per (automation, trigger,      │
//	│  target) combination; failures are isolated per combination│
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────┐   │
//	│  │   Registry   │──▶│  Evaluator   │──▶│    Engine    │   │
//	│  │(registry.go) │   │(evaluator.go)│   │ (engine.go)  │   │
//	│  └──────────────┘   └──────────────┘   └──────────────┘   │
//	│         │                  │                  │            │
//	│         ▼                  ▼                  ▼            │
//	│  ┌──────────────────────────────────────────────────────┐ │
//	│  │  Repository (repository.go): automations + executions│ │
//	│  └──────────────────────────────────────────────────────┘ │
//	└────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Automation: Read-only definition of triggers and an action graph
//   - Trigger: Event-matching condition that starts enrollment evaluation
//   - Action: One node in the graph with a type-specific effect
//   - Execution: Persisted audit record of one enrollment run
//   - Engine: Resumable graph-walker over an Execution
//   - Evaluator: Enrollment and re-enrollment decisions
//   - Dispatcher: Trigger event fan-out entry point
//   - Sweeper: Background resumer for elapsed wait actions
//
// # Thread Safety
//
// Registry, Engine, Evaluator and Dispatcher are safe for concurrent use.
// Different targets and automations may run concurrently; within one
// Advance call chain actions are visited strictly in graph order.
//
// # Usage
//
//	repo := automation.NewSQLiteRepository(db)
//	registry := automation.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	segments := automation.NewSegmentClient(mqttClient, 10*time.Second)
//	handlers := automation.NewHandlerRegistry()
//	automation.RegisterDefaultHandlers(handlers, mqttClient, 10*time.Second)
//
//	engine := automation.NewEngine(registry, repo, segments, handlers, log)
//	evaluator := automation.NewEvaluator(repo, segments, log)
//	dispatcher := automation.NewDispatcher(registry, evaluator, engine, log)
//
//	dispatcher.Receive(ctx, "customer:created", targets)
package automation
