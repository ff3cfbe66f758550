// Package executor runs the top-level request pipeline: origin check,
// preflight, body parse and route dispatch.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tjfontaine/estimate-executor/internal/company"
	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/core/domain"
	"github.com/tjfontaine/estimate-executor/internal/core/result"
	"github.com/tjfontaine/estimate-executor/internal/endpoints"
	"github.com/tjfontaine/estimate-executor/internal/pipeline"
	"github.com/tjfontaine/estimate-executor/internal/router"
)

// PipelineName names the request pipeline in logs, spans and metrics.
const PipelineName = "request"

// routeDispatchIndex is route_dispatch's position in the request pipeline.
const routeDispatchIndex = 3

// DefaultMaxBodyBytes applies when Env carries no limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// Exchange is the context threaded through the request pipeline. The
// transport fills Request, URL and Env; each step adds the field it owns.
type Exchange struct {
	Request *http.Request
	URL     *url.URL
	Env     *config.Config

	Company  *company.Company
	Body     json.RawMessage
	Response *domain.Response
}

// Outcome is the result of running the request pipeline.
type Outcome = result.Result[Exchange, error, *domain.Response]

// Executor is the request pipeline bound to a company registry and a route
// table.
type Executor struct {
	exec *pipeline.Executor[Exchange, *domain.Response]
}

// New builds the request pipeline.
func New(registry *company.Registry, routes endpoints.Table, opts ...pipeline.Option) *Executor {
	return &Executor{
		exec: pipeline.New(PipelineName, []pipeline.Stage[Exchange, *domain.Response]{
			pipeline.Named("origin_check", OriginCheck(registry)),
			pipeline.Named("preflight", Preflight()),
			pipeline.Named("body_parse", BodyParse()),
			pipeline.Named("route_dispatch", RouteDispatch(routes)),
		}, opts...),
	}
}

// Stages returns the step names in execution order.
func (e *Executor) Stages() []string {
	return e.exec.Stages()
}

// Handle runs the pipeline for r.
func (e *Executor) Handle(ctx context.Context, r *http.Request, env *config.Config) Outcome {
	return e.exec.Run(ctx, Exchange{Request: r, URL: r.URL, Env: env})
}

func next(x Exchange) Outcome {
	return result.Success[Exchange, error, *domain.Response](x)
}

func fail(err error) Outcome {
	return result.Failure[Exchange, error, *domain.Response](err)
}

// OriginCheck resolves the Origin header to a company.
func OriginCheck(registry *company.Registry) pipeline.Step[Exchange, *domain.Response] {
	return func(_ context.Context, x Exchange) Outcome {
		origin := x.Request.Header.Get("Origin")
		if origin == "" {
			return fail(domain.ErrInvalidRequest("Missing Origin header").
				WithCode(domain.ErrorCodeMissingOrigin))
		}

		host := origin
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
		c, ok := registry.Lookup(host)
		if !ok {
			return fail(domain.ErrForbiddenOrigin("Invalid domain: " + host))
		}

		x.Company = c
		return next(x)
	}
}

// Preflight answers OPTIONS requests with an empty 204 and stops the pipeline.
func Preflight() pipeline.Step[Exchange, *domain.Response] {
	return func(_ context.Context, x Exchange) Outcome {
		if x.Request.Method == http.MethodOptions {
			return result.Interrupt[Exchange, error](domain.NoContent())
		}
		return next(x)
	}
}

// BodyParse reads the request body as JSON. GET requests carry no body.
func BodyParse() pipeline.Step[Exchange, *domain.Response] {
	return func(_ context.Context, x Exchange) Outcome {
		if x.Request.Method == http.MethodGet || x.Request.Body == nil {
			x.Body = nil
			return next(x)
		}

		limit := DefaultMaxBodyBytes
		if x.Env != nil && x.Env.Server.MaxBodyBytes > 0 {
			limit = x.Env.Server.MaxBodyBytes
		}

		raw, err := io.ReadAll(io.LimitReader(x.Request.Body, limit+1))
		if err != nil {
			return fail(domain.ErrInvalidRequest("Invalid JSON").
				WithCode(domain.ErrorCodeInvalidJSON).
				WithCause(err))
		}
		if int64(len(raw)) > limit {
			return fail(domain.ErrInvalidRequest(fmt.Sprintf("Request body exceeds %d bytes", limit)).
				WithCode(domain.ErrorCodeBodyTooLarge).
				WithStatusCode(http.StatusRequestEntityTooLarge))
		}
		if !json.Valid(raw) {
			return fail(domain.ErrInvalidRequest("Invalid JSON").
				WithCode(domain.ErrorCodeInvalidJSON).
				WithCause(errors.New("request body is not valid JSON")))
		}

		x.Body = raw
		return next(x)
	}
}

// RouteDispatch hands the exchange to the route for its path and method and
// stores the route's response. A route returning the zero Result fails with
// a *pipeline.MalformedResultError.
func RouteDispatch(routes endpoints.Table) pipeline.Step[Exchange, *domain.Response] {
	return func(ctx context.Context, x Exchange) Outcome {
		out := router.Route(ctx, routes, x.URL.Path, x.Request.Method, endpoints.Request{
			Company: x.Company,
			Body:    x.Body,
		})
		if !out.Valid() {
			return fail(&pipeline.MalformedResultError{
				Pipeline: PipelineName,
				Step:     x.Request.Method + " " + x.URL.Path,
				Index:    routeDispatchIndex,
				Value:    out,
			})
		}
		return result.Switch(out,
			func(resp *domain.Response) Outcome {
				x.Response = resp
				return next(x)
			},
			fail,
			func(resp *domain.Response) Outcome {
				return result.Interrupt[Exchange, error](resp)
			},
		)
	}
}
