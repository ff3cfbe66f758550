// Package router dispatches a request to a handler by exact path and method.
package router

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/tjfontaine/estimate-executor/internal/core/result"
)

// Handler serves one path and method.
type Handler[C, S, I any] func(ctx context.Context, in C) result.Result[S, error, I]

// Table maps pathname to HTTP method to handler. Keys are matched exactly
// and case-sensitively. A table is built once and only read afterwards.
type Table[C, S, I any] map[string]map[string]Handler[C, S, I]

// ErrorKind distinguishes routing failures.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	MethodNotAllowed
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case MethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

// RouteError is the failure returned when no handler matches.
type RouteError struct {
	Kind   ErrorKind
	Method string
	Path   string
	// Allowed lists the methods registered for Path, sorted. Empty for NotFound.
	Allowed []string
}

func (e *RouteError) Error() string {
	if e.Kind == MethodNotAllowed {
		return fmt.Sprintf("Method Not Allowed: %q for path %q", e.Method, e.Path)
	}
	return fmt.Sprintf("Not Found: %q", e.Path)
}

// HTTPStatusCode returns 404 or 405.
func (e *RouteError) HTTPStatusCode() int {
	if e.Kind == MethodNotAllowed {
		return http.StatusMethodNotAllowed
	}
	return http.StatusNotFound
}

// Route looks up path and method in table and invokes the matching handler
// with in. The handler's Result is returned as is.
func Route[C, S, I any](ctx context.Context, table Table[C, S, I], path, method string, in C) result.Result[S, error, I] {
	methods, ok := table[path]
	if !ok {
		return result.Failure[S, error, I](&RouteError{Kind: NotFound, Method: method, Path: path})
	}

	handler := methods[method]
	if handler == nil {
		return result.Failure[S, error, I](&RouteError{
			Kind:    MethodNotAllowed,
			Method:  method,
			Path:    path,
			Allowed: allowed(methods),
		})
	}

	return handler(ctx, in)
}

func allowed[H any](methods map[string]H) []string {
	out := make([]string, 0, len(methods))
	for m := range methods {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
