// Package endpoints implements the executor's routes. Each multi-step
// endpoint is its own pipeline over a private state struct.
package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tjfontaine/estimate-executor/internal/altcha"
	"github.com/tjfontaine/estimate-executor/internal/company"
	"github.com/tjfontaine/estimate-executor/internal/core/domain"
	"github.com/tjfontaine/estimate-executor/internal/core/result"
	"github.com/tjfontaine/estimate-executor/internal/email"
	"github.com/tjfontaine/estimate-executor/internal/pipeline"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
	"github.com/tjfontaine/estimate-executor/internal/router"
	"github.com/tjfontaine/estimate-executor/internal/validate"
)

const (
	PathChallenge     = "/altcha_challenge"
	PathEstimateEmail = "/send_estimate_email"
	PathContactEmail  = "/send_contact_email"
)

// Request is what the executor hands to a route.
type Request struct {
	Company *company.Company
	// Body is the parsed JSON body, nil for GET.
	Body json.RawMessage
}

// Outcome is the result type every route returns.
type Outcome = result.Result[*domain.Response, error, *domain.Response]

// Table is the executor's route table.
type Table = router.Table[Request, *domain.Response, *domain.Response]

// SolutionVerifier checks an encoded ALTCHA payload.
type SolutionVerifier interface {
	Verify(encoded string) error
}

// ChallengeOptions controls issued challenges.
type ChallengeOptions struct {
	HMACKey    string
	MaxNumber  int64
	Expiration time.Duration
}

// Deps are the collaborators the endpoints call.
type Deps struct {
	Challenges ChallengeOptions
	Verifier   SolutionVerifier
	Catalog    *pricing.Catalog
	Mailer     email.Sender
	Renderer   *email.Renderer
	Recipients email.RecipientPolicy
	From       string
	ReplyTo    string
	Now        func() time.Time
	Logger     *slog.Logger
	// PipelineOptions are passed to every endpoint pipeline.
	PipelineOptions []pipeline.Option
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Routes builds the route table. Endpoint pipelines are built once here and
// reused for every request.
func Routes(d *Deps) Table {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	estimate := newEstimateEndpoint(d)
	contact := newContactEndpoint(d)

	return Table{
		PathChallenge: {
			http.MethodGet: d.challenge,
		},
		PathEstimateEmail: {
			http.MethodPost: estimate.handle,
		},
		PathContactEmail: {
			http.MethodPost: contact.handle,
		},
	}
}

func (d *Deps) challenge(ctx context.Context, _ Request) Outcome {
	opts := altcha.Options{
		HMACKey:   d.Challenges.HMACKey,
		MaxNumber: d.Challenges.MaxNumber,
	}
	if d.Challenges.Expiration > 0 {
		opts.Expires = d.now().Add(d.Challenges.Expiration)
	}

	c, err := altcha.CreateChallenge(opts)
	if err != nil {
		d.Logger.ErrorContext(ctx, "altcha challenge creation failed", slog.String("error", err.Error()))
		return result.Failure[*domain.Response, error, *domain.Response](
			domain.ErrServer("Failed to create challenge.").WithCause(err))
	}
	resp, err := domain.JSON(http.StatusOK, c)
	if err != nil {
		return result.Failure[*domain.Response, error, *domain.Response](err)
	}
	return result.Success[*domain.Response, error, *domain.Response](resp)
}

var base64Payload = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)

func altchaPayloadRule() validate.Rule {
	return validate.Matches(base64Payload, "be a base64 string")
}

func success() *domain.Response {
	return domain.MustJSON(http.StatusOK, map[string]bool{"success": true})
}

type step[S any] = pipeline.Step[S, *domain.Response]

func next[S any](s S) result.Result[S, error, *domain.Response] {
	return result.Success[S, error, *domain.Response](s)
}

func fail[S any](err error) result.Result[S, error, *domain.Response] {
	return result.Failure[S, error, *domain.Response](err)
}

// finish turns a finished endpoint pipeline into a route outcome.
func finish[S any](r result.Result[S, error, *domain.Response], response func(S) *domain.Response) Outcome {
	return result.MapSuccess(r, response)
}

func invalid(prefix string, msgs []string) *domain.APIError {
	return domain.ErrInvalidRequest(prefix + strings.Join(msgs, ", "))
}

// verifyAltcha checks the payload returned by get.
func verifyAltcha[S any](d *Deps, get func(S) string) step[S] {
	return func(ctx context.Context, s S) result.Result[S, error, *domain.Response] {
		err := d.Verifier.Verify(get(s))
		if err == nil {
			return next(s)
		}

		d.Logger.WarnContext(ctx, "altcha verification failed", slog.String("error", err.Error()))

		apiErr := domain.ErrVerification("Security verification failed. Please try again.").WithCause(err)
		switch {
		case errors.Is(err, altcha.ErrMalformed):
			apiErr = domain.ErrVerification("Security verification error. Please try again.").WithCause(err)
		case errors.Is(err, altcha.ErrExpired):
			apiErr.WithCode(domain.ErrorCodeChallengeExpired)
		case errors.Is(err, altcha.ErrReplayed):
			apiErr.WithCode(domain.ErrorCodeChallengeReused)
		}
		return fail[S](apiErr)
	}
}

// validateContact checks the raw contact against the company's rules and
// hands the contact read from that same value to set.
func validateContact[S any](get func(S) (*company.Company, gjson.Result), set func(*S, email.Contact)) step[S] {
	return func(_ context.Context, s S) result.Result[S, error, *domain.Response] {
		co, raw := get(s)
		if msgs := co.ValidateContact(raw, "body.contact"); len(msgs) > 0 {
			return fail[S](invalid("Invalid contact: ", msgs).WithParam("body.contact"))
		}
		set(&s, contactFrom(raw))
		return next(s)
	}
}

// contactFrom reads a validated contact. Duplicate keys resolve to their
// first occurrence, the one the rules saw.
func contactFrom(raw gjson.Result) email.Contact {
	c := email.Contact{
		Name:          raw.Get("name").Str,
		Email:         raw.Get("email").Str,
		Phone:         raw.Get("phone").Str,
		StreetAddress: raw.Get("street_address").Str,
	}
	extra := raw.Get("extra")
	if !extra.IsObject() {
		return c
	}
	c.Extra = make(map[string]string)
	extra.ForEach(func(key, value gjson.Result) bool {
		if _, seen := c.Extra[key.Str]; !seen {
			c.Extra[key.Str] = value.Str
		}
		return true
	})
	return c
}

// send delivers the message built by an earlier step.
func send[S any](d *Deps, get func(S) email.Message) step[S] {
	return func(ctx context.Context, s S) result.Result[S, error, *domain.Response] {
		msg := get(s)
		if _, err := d.Mailer.Send(ctx, msg); err != nil {
			d.Logger.ErrorContext(ctx, "email delivery failed",
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()))
			return fail[S](domain.ErrUpstream("Failed to send email. Please try again later.").WithCause(err))
		}
		return next(s)
	}
}
