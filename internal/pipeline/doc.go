// Package pipeline provides the sequential step executor used for every
// request.
//
// A pipeline is an ordered list of steps run against an initial context value.
// Each step receives the context produced by the step before it and returns a
// result.Result. The executor stops at the first step that does not succeed:
//
//	Success(ctx)   -> run the next step with ctx
//	Failure(err)   -> stop, return the failure unchanged
//	Interrupt(v)   -> stop, return the interrupt unchanged
//
// # Context
//
// The context is a single struct type threaded through every step. Steps treat
// it as append-only: they return a copy with new fields set and never clear or
// overwrite a field written by an earlier step. This is a convention; the
// executor does not check it.
//
// # Containment
//
// A step that panics does not crash the request. The panic is recovered and
// returned as Failure(*UnexpectedError) carrying the panic message and the
// goroutine stack. A step that returns an untagged (zero) Result is treated as
// Failure(*MalformedResultError). Neither case is retried.
//
// # Ordering
//
// Steps run one at a time on the caller's goroutine. Step n+1 never starts
// before step n has returned. There is no timeout in the executor; a step that
// blocks forever blocks the pipeline, so blocking steps should honour ctx.
package pipeline
