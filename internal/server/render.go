package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/estimate-executor/internal/core/domain"
	"github.com/tjfontaine/estimate-executor/internal/core/result"
	"github.com/tjfontaine/estimate-executor/internal/executor"
	"github.com/tjfontaine/estimate-executor/internal/pipeline"
	"github.com/tjfontaine/estimate-executor/internal/router"
)

// Render writes the terminal outcome of the request pipeline.
func Render(w http.ResponseWriter, r *http.Request, out executor.Outcome, logger *slog.Logger) {
	var resp *domain.Response

	switch out.Kind() {
	case result.KindSuccess:
		x, _ := out.Value()
		if x.Company != nil {
			AddLogField(r.Context(), "company", x.Company.ID)
		}
		resp = x.Response
		if resp == nil {
			resp = errorResponse(r, errors.New("route produced no response"), logger)
		}
	case result.KindInterrupt:
		resp, _ = out.Interruption()
		if resp == nil {
			resp = domain.NoContent()
		}
	default:
		err, _ := out.Err()
		resp = errorResponse(r, err, logger)
	}

	if err := resp.Write(w); err != nil {
		logger.WarnContext(r.Context(), "failed to write response",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()))
	}
}

func errorResponse(r *http.Request, err error, logger *slog.Logger) *domain.Response {
	if err == nil {
		err = errors.New("request failed without an error")
	}
	AddError(r.Context(), err)

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code != "" {
			AddLogField(r.Context(), "error_code", string(apiErr.Code))
		}
		return domain.MustJSON(apiErr.HTTPStatusCode(), apiErr.Body())
	}

	var routeErr *router.RouteError
	if errors.As(err, &routeErr) {
		resp := domain.Text(routeErr.HTTPStatusCode(), routeErr.Error())
		if len(routeErr.Allowed) > 0 {
			resp.Header.Set("Allow", strings.Join(routeErr.Allowed, ", "))
		}
		return resp
	}

	attrs := []any{
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("error", err.Error()),
	}
	var unexpected *pipeline.UnexpectedError
	if errors.As(err, &unexpected) {
		attrs = append(attrs,
			slog.String("step", unexpected.Step),
			slog.String("stack", unexpected.Stack))
	}
	logger.ErrorContext(r.Context(), "unexpected error in request pipeline", attrs...)

	return domain.MustJSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
