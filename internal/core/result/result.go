// Package result provides the three-way outcome shared by every pipeline step.
//
// A Result carries exactly one payload under exactly one tag:
//
//   - Success: processing may continue with the next step.
//   - Failure: processing stops because something went wrong.
//   - Interrupt: processing stops early without an error, for example when
//     answering a CORS preflight.
//
// The zero Result has no tag. Constructors always produce a tagged value, so an
// untagged Result can only come from a buggy step, and the pipeline executor
// treats it as a failure.
package result

import "fmt"

// Kind identifies which variant a Result holds.
type Kind uint8

const (
	// KindInvalid is the zero Kind. No constructor produces it.
	KindInvalid Kind = iota
	KindSuccess
	KindFailure
	KindInterrupt
)

// String returns a lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindInterrupt:
		return "interrupt"
	default:
		return "invalid"
	}
}

// Result is a tagged union of a success value S, a failure value F and an
// interrupt value I. It is a plain value; copy it freely.
type Result[S, F, I any] struct {
	kind      Kind
	success   S
	failure   F
	interrupt I
}

// Success returns a Result tagged as success.
func Success[S, F, I any](v S) Result[S, F, I] {
	return Result[S, F, I]{kind: KindSuccess, success: v}
}

// Failure returns a Result tagged as failure.
func Failure[S, F, I any](v F) Result[S, F, I] {
	return Result[S, F, I]{kind: KindFailure, failure: v}
}

// Interrupt returns a Result tagged as interrupt.
func Interrupt[S, F, I any](v I) Result[S, F, I] {
	return Result[S, F, I]{kind: KindInterrupt, interrupt: v}
}

// Kind reports the variant held by r.
func (r Result[S, F, I]) Kind() Kind { return r.kind }

// IsSuccess reports whether r is a success.
func (r Result[S, F, I]) IsSuccess() bool { return r.kind == KindSuccess }

// IsFailure reports whether r is a failure.
func (r Result[S, F, I]) IsFailure() bool { return r.kind == KindFailure }

// IsInterrupt reports whether r is an interrupt.
func (r Result[S, F, I]) IsInterrupt() bool { return r.kind == KindInterrupt }

// Valid reports whether r carries one of the three tags.
func (r Result[S, F, I]) Valid() bool {
	return r.kind == KindSuccess || r.kind == KindFailure || r.kind == KindInterrupt
}

// Value returns the success payload and whether r is a success.
func (r Result[S, F, I]) Value() (S, bool) {
	return r.success, r.kind == KindSuccess
}

// Err returns the failure payload and whether r is a failure.
func (r Result[S, F, I]) Err() (F, bool) {
	return r.failure, r.kind == KindFailure
}

// Interruption returns the interrupt payload and whether r is an interrupt.
func (r Result[S, F, I]) Interruption() (I, bool) {
	return r.interrupt, r.kind == KindInterrupt
}

// String implements fmt.Stringer.
func (r Result[S, F, I]) String() string {
	switch r.kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", r.success)
	case KindFailure:
		return fmt.Sprintf("Failure(%v)", r.failure)
	case KindInterrupt:
		return fmt.Sprintf("Interrupt(%v)", r.interrupt)
	default:
		return "Result(invalid)"
	}
}

// Switch calls exactly one of the handlers, chosen by r's tag, and returns its
// value. An untagged Result goes to onFailure with the zero F.
func Switch[S, F, I, T any](r Result[S, F, I], onSuccess func(S) T, onFailure func(F) T, onInterrupt func(I) T) T {
	switch r.kind {
	case KindSuccess:
		return onSuccess(r.success)
	case KindInterrupt:
		return onInterrupt(r.interrupt)
	default:
		return onFailure(r.failure)
	}
}

// MapSuccess converts the success payload with fn. Failure and interrupt
// payloads pass through untouched.
func MapSuccess[S, T, F, I any](r Result[S, F, I], fn func(S) T) Result[T, F, I] {
	switch r.kind {
	case KindSuccess:
		return Success[T, F, I](fn(r.success))
	case KindFailure:
		return Failure[T, F, I](r.failure)
	case KindInterrupt:
		return Interrupt[T, F, I](r.interrupt)
	default:
		return Result[T, F, I]{}
	}
}
