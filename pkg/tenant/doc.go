// Package tenant tracks the active tenant of a logical execution.
//
// The tenant lives in a slot carried by context.Context. A slot belongs to
// one execution: Set mutates it in place, Run switches it for the duration
// of a body and always restores the previous value, and Go/Fork hand a
// spawned execution its own slot seeded with a snapshot of the current
// value. Nothing is shared between executions except through that
// snapshot.
//
// The empty string and the sentinel "default" both mean "no explicit
// tenant".
package tenant
