// Package state provides the shared publication primitives used by the
// collector and reconciler.
//
// # Overview
//
// Each running component owns its state on a single goroutine and publishes
// whole snapshots through a Feed. Observers (the dashboard, headless commands,
// tests) read those snapshots or subscribe to them; they never touch the
// owner's working copy.
//
//	Owner goroutine:                Observers:
//	┌──────────────────┐            ┌──────────────────┐
//	│ fetch(ctx, ...)  │            │ feed.Snapshot()  │
//	│      ↓           │            │        or        │
//	│ merge into copy  │            │ <-subscription   │
//	│      ↓           │  (clone)   │      ↓           │
//	│ scope.Publish()  │───────────→│ render / encode  │
//	└──────────────────┘            └──────────────────┘
//
// # Core Types
//
// Feed:
//   - Holds the latest value and clones it for every reader
//   - Subscriber channels buffer one value and coalesce to the newest
//   - Publish never blocks on a slow subscriber
//
// Scope:
//   - Couples a Feed with a stop signal and a done signal
//   - Cancel and Publish share a lock, so nothing is published after Cancel
//   - A fetch already in flight is not interrupted; its result is discarded
//
// ErrorInfo:
//   - Immutable error record carried inside published state
//   - Kind is one of KindFetchFailure, KindProtocolViolation, KindLimitExceeded
//   - Built by Classify from the package sentinels
//
// # Usage Example
//
//	feed := state.NewFeed(cloneRegistry)
//	scope := state.NewScope(feed)
//	go func() {
//		defer scope.Finish()
//		for {
//			snap, err := fetch(ctx)
//			if scope.Cancelled() {
//				return
//			}
//			scope.Publish(apply(snap, err))
//		}
//	}()
//
//	ch, cancel := feed.Subscribe()
//	defer cancel()
//	for v := range ch {
//		render(v)
//	}
//
// # Error Propagation
//
// Errors never escape an owner goroutine as panics or returns. They are
// classified once and stored on the published value, next to the data that
// was already accumulated, so observers can show partial results together
// with the failure.
package state
