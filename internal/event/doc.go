// Package event provides a pub-sub event bus for decoupled inter-component
// communication in swarmops.
//
// This package lets the dispatcher, phase collector, merge engine, and
// review chain communicate through events rather than direct method calls.
// The event ledger subscribes to "*" and writes every event to durable
// JSONL storage; nothing else in the repo depends on the bus being present,
// so tests can construct components without a ledger attached.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Worker Lifecycle:
//   - [WorkerSpawnedEvent]: Emitted once a worker's session is verified
//   - [WorkerCompletedEvent]: Emitted when a worker finishes its task
//   - [WorkerFailedEvent]: Emitted when a worker fails, times out, or is guard-blocked
//
// Phase Lifecycle:
//   - [PhaseInitializedEvent]: Emitted when a phase record is created
//   - [PhaseCompletedEvent]: Emitted once every worker in a phase has reported
//   - [PhaseFailedEvent]: Emitted when a phase cannot proceed
//
// Merge and Review:
//   - [ConflictResolutionEvent]: Emitted when the merge engine dispatches a conflict
//   - [ReviewDecisionEvent]: Emitted when a reviewer in the sequential chain decides
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("worker.completed", func(e event.Event) {
//	    completed := e.(event.WorkerCompletedEvent)
//	    log.Printf("worker %s completed task %s", completed.WorkerID, completed.TaskID)
//	})
//
//	// Subscribe to all events (the ledger writer does this)
//	bus.SubscribeAll(func(e event.Event) {
//	    ledgerWriter.Append(e)
//	})
//
//	// Publish events
//	bus.Publish(event.NewWorkerSpawnedEvent(runID, phaseNum, taskID, workerID, label, wtPath, branch))
//
//	// Unsubscribe when done
//	id := bus.Subscribe("phase.failed", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - worker.spawned, worker.completed, worker.failed
//   - phase.initialized, phase.completed, phase.failed
//   - conflict.resolution
//   - review.decision
package event
