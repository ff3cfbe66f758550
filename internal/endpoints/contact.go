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
	"github.com/tjfontaine/estimate-executor/internal/validate"
)

var contactBody = validate.Object(
	validate.Field("contact", company.ContactRule()),
	validate.Field("altcha_payload", altchaPayloadRule()),
)

type contactState struct {
	company       *company.Company
	raw           json.RawMessage
	body          gjson.Result
	contactRaw    gjson.Result
	altchaPayload string

	contact  email.Contact
	message  email.Message
	response *domain.Response
}

type contactEndpoint struct {
	deps *Deps
	exec *pipeline.Executor[contactState, *domain.Response]
}

func newContactEndpoint(d *Deps) *contactEndpoint {
	e := &contactEndpoint{deps: d}
	e.exec = pipeline.New("send_contact_email", []pipeline.Stage[contactState, *domain.Response]{
		pipeline.Named("validate_body", e.validateBody),
		pipeline.Named("verify_altcha", verifyAltcha(d, func(s contactState) string { return s.altchaPayload })),
		pipeline.Named("validate_contact", validateContact(
			func(s contactState) (*company.Company, gjson.Result) { return s.company, s.contactRaw },
			func(s *contactState, c email.Contact) { s.contact = c },
		)),
		pipeline.Named("compose", e.compose),
		pipeline.Named("send", send(d, func(s contactState) email.Message { return s.message })),
		pipeline.Named("respond", func(_ context.Context, s contactState) result.Result[contactState, error, *domain.Response] {
			s.response = success()
			return next(s)
		}),
	}, append([]pipeline.Option{pipeline.WithLogger(d.Logger)}, d.PipelineOptions...)...)
	return e
}

func (e *contactEndpoint) handle(ctx context.Context, req Request) Outcome {
	initial := contactState{company: req.Company, raw: req.Body}
	return finish(e.exec.Run(ctx, initial), func(s contactState) *domain.Response { return s.response })
}

func (e *contactEndpoint) validateBody(_ context.Context, s contactState) result.Result[contactState, error, *domain.Response] {
	if msgs := validate.Check(s.raw, "body", contactBody); len(msgs) > 0 {
		return fail[contactState](invalid("", msgs))
	}
	s.body = gjson.ParseBytes(s.raw)
	s.contactRaw = s.body.Get("contact")
	s.altchaPayload = s.body.Get("altcha_payload").String()
	return next(s)
}

func (e *contactEndpoint) compose(_ context.Context, s contactState) result.Result[contactState, error, *domain.Response] {
	subject, html, err := e.deps.Renderer.ContactRequest(s.contact)
	if err != nil {
		return fail[contactState](domain.ErrServer("Failed to compose email.").WithCause(err))
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
