// Package reconciler maintains a keyed registry of live entities by polling a
// feed on a fixed interval.
//
// Each successful snapshot is merged into a new registry built next to the
// current one and published in a single step, so observers never see a half
// applied poll. Entities present in the snapshot are inserted or overwritten
// by key; entities absent from it are handled by the configured Policy.
//
// A failed poll leaves the entities untouched and records the error. Polling
// continues on schedule, and the next success clears the error.
//
// Polls never overlap. The loop runs on one goroutine, and ticks that fire
// while a poll is running collapse into a single follow-up poll.
package reconciler
