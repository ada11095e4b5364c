// Package session groups collectors and reconcilers under one cancellation
// scope and merges their status.
//
// A Coordinator opens a Session from a Config naming which components to run.
// The session starts them, answers status queries with a merged view, and
// cancels all of them on Close. It holds no data of its own: observers read
// data straight from the component handles (see Lookup).
package session
