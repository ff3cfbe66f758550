package endpoints

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/tjfontaine/estimate-executor/internal/company"
	"github.com/tjfontaine/estimate-executor/internal/core/domain"
	"github.com/tjfontaine/estimate-executor/internal/core/result"
	"github.com/tjfontaine/estimate-executor/internal/email"
	"github.com/tjfontaine/estimate-executor/internal/pipeline"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
	"github.com/tjfontaine/estimate-executor/internal/validate"
)

var estimateBody = validate.Object(
	validate.Field("service", validate.String()),
	validate.Field("args", validate.Values(validate.Any())),
	validate.Field("contact", company.ContactRule()),
	validate.Field("altcha_payload", altchaPayloadRule()),
)

type estimateState struct {
	company       *company.Company
	raw           json.RawMessage
	body          gjson.Result
	serviceName   gjson.Result
	args          gjson.Result
	contactRaw    gjson.Result
	altchaPayload string

	service  pricing.Service
	contact  email.Contact
	quote    pricing.Quote
	message  email.Message
	response *domain.Response
}

type estimateEndpoint struct {
	deps *Deps
	exec *pipeline.Executor[estimateState, *domain.Response]
}

func newEstimateEndpoint(d *Deps) *estimateEndpoint {
	e := &estimateEndpoint{deps: d}
	e.exec = pipeline.New("send_estimate_email", []pipeline.Stage[estimateState, *domain.Response]{
		pipeline.Named("validate_body", e.validateBody),
		pipeline.Named("verify_altcha", verifyAltcha(d, func(s estimateState) string { return s.altchaPayload })),
		pipeline.Named("resolve_service", e.resolveService),
		pipeline.Named("validate_args", e.validateArgs),
		pipeline.Named("validate_contact", validateContact(
			func(s estimateState) (*company.Company, gjson.Result) { return s.company, s.contactRaw },
			func(s *estimateState, c email.Contact) { s.contact = c },
		)),
		pipeline.Named("price", e.price),
		pipeline.Named("compose", e.compose),
		pipeline.Named("send", send(d, func(s estimateState) email.Message { return s.message })),
		pipeline.Named("respond", e.respond),
	}, append([]pipeline.Option{pipeline.WithLogger(d.Logger)}, d.PipelineOptions...)...)
	return e
}

func (e *estimateEndpoint) handle(ctx context.Context, req Request) Outcome {
	initial := estimateState{company: req.Company, raw: req.Body}
	return finish(e.exec.Run(ctx, initial), func(s estimateState) *domain.Response { return s.response })
}

func (e *estimateEndpoint) validateBody(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	if msgs := validate.Check(s.raw, "body", estimateBody); len(msgs) > 0 {
		return fail[estimateState](invalid("", msgs))
	}
	s.body = gjson.ParseBytes(s.raw)
	s.serviceName = s.body.Get("service")
	s.args = s.body.Get("args")
	s.contactRaw = s.body.Get("contact")
	s.altchaPayload = s.body.Get("altcha_payload").String()
	return next(s)
}

func (e *estimateEndpoint) resolveService(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	if msgs := s.company.ValidateServiceName(s.serviceName, "body.service"); len(msgs) > 0 {
		return fail[estimateState](invalid("Invalid service name: ", msgs).
			WithCode(domain.ErrorCodeUnknownService).
			WithParam("body.service"))
	}
	s.service, _ = s.company.Service(s.serviceName.String())
	return next(s)
}

func (e *estimateEndpoint) validateArgs(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	if msgs := s.service.Validate(s.args, "body.args"); len(msgs) > 0 {
		return fail[estimateState](invalid("Invalid pricing function arguments: ", msgs).WithParam("body.args"))
	}
	return next(s)
}

func (e *estimateEndpoint) price(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	q, err := e.deps.Catalog.Quote(s.service, s.args)
	if err != nil {
		return fail[estimateState](domain.ErrServer("Failed to price estimate.").WithCause(err))
	}
	s.quote = q
	return next(s)
}

func (e *estimateEndpoint) compose(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	subject, html, err := e.deps.Renderer.Estimate(email.Estimate{
		CompanyName: s.company.Name,
		ServiceName: s.service.DisplayName(),
		Details:     s.service.Describe(s.args),
		Quote:       s.quote,
		Contact:     s.contact,
	})
	if err != nil {
		return fail[estimateState](domain.ErrServer("Failed to compose email.").WithCause(err))
	}
	s.message = email.Message{
		From:    e.deps.From,
		To:      e.deps.Recipients.Resolve(s.contact.Email, s.company.Recipients),
		Subject: subject,
		HTML:    html,
		ReplyTo: e.deps.ReplyTo,
	}
	return next(s)
}

func (e *estimateEndpoint) respond(_ context.Context, s estimateState) result.Result[estimateState, error, *domain.Response] {
	s.response = success()
	return next(s)
}
