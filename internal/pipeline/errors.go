package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

var discardLogger = slog.New(slog.DiscardHandler)

func stepName(i int) string {
	return "step-" + strconv.Itoa(i+1)
}

// UnexpectedError is the failure produced when a step panics. Message holds
// the panic value as text and Stack the goroutine stack at the point of
// recovery.
type UnexpectedError struct {
	Step    string
	Message string
	Stack   string
	cause   error
}

func newUnexpectedError(step string, v any, stack []byte) *UnexpectedError {
	ue := &UnexpectedError{Step: step, Stack: string(stack)}
	switch x := v.(type) {
	case error:
		ue.Message = x.Error()
		ue.cause = x
	case string:
		ue.Message = x
	default:
		ue.Message = fmt.Sprint(x)
	}
	return ue
}

func (e *UnexpectedError) Error() string {
	return e.Message
}

// Unwrap returns the panic value when it was an error.
func (e *UnexpectedError) Unwrap() error {
	return e.cause
}

// MalformedResultError is the failure produced when a step returns a Result
// without a tag. Value holds what the step returned.
type MalformedResultError struct {
	Pipeline string
	Step     string
	Index    int
	Value    any
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("pipeline %s: step %s (#%d) returned a malformed result", e.Pipeline, e.Step, e.Index+1)
}

// IsUnexpected reports whether err is, or wraps, an UnexpectedError.
func IsUnexpected(err error) bool {
	var ue *UnexpectedError
	return errors.As(err, &ue)
}
