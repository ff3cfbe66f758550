package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tjfontaine/estimate-executor/internal/altcha"
	"github.com/tjfontaine/estimate-executor/internal/company"
	"github.com/tjfontaine/estimate-executor/internal/core/domain"
	"github.com/tjfontaine/estimate-executor/internal/email"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
	"github.com/tjfontaine/estimate-executor/internal/router"
)

type fakeVerifier struct {
	err      error
	payloads []string
}

func (f *fakeVerifier) Verify(encoded string) error {
	f.payloads = append(f.payloads, encoded)
	return f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []email.Message
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

var fixedNow = time.Date(2026, time.November, 15, 10, 0, 0, 0, time.UTC)

func testCompany() *company.Company {
	return &company.Company{
		ID:         "duff",
		Name:       "Duff Tree Service",
		Domains:    []string{"dufftreeservice.com"},
		Recipients: []string{"owner@duff.test"},
		Services:   map[string]pricing.Service{"tree_planting": pricing.TreePlanting{}},
	}
}

func newTestDeps(t *testing.T, verifier SolutionVerifier, mailer email.Sender) *Deps {
	t.Helper()
	renderer, err := email.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	inflation, err := pricing.ParseInflation("2025-11", "1.00165")
	if err != nil {
		t.Fatal(err)
	}
	return &Deps{
		Challenges: ChallengeOptions{HMACKey: "k", MaxNumber: 1000, Expiration: 5 * time.Minute},
		Verifier:   verifier,
		Catalog: pricing.NewCatalog(inflation, pricing.Services(),
			pricing.WithClock(func() time.Time { return fixedNow })),
		Mailer:     mailer,
		Renderer:   renderer,
		Recipients: email.RecipientPolicy{DevRecipient: "dev@iec.test", TestContact: "me+test@iec.test"},
		From:       "Estimates <estimate@iec.test>",
		ReplyTo:    "Support <support@iec.test>",
		Now:        func() time.Time { return fixedNow },
		Logger:     slog.New(slog.DiscardHandler),
	}
}

func estimateBodyJSON(mutate func(map[string]any)) json.RawMessage {
	body := map[string]any{
		"service": "tree_planting",
		"args":    map[string]any{"tree_size": "3 gallons", "number_of_trees": 2},
		"contact": map[string]any{
			"name":           "Ann",
			"email":          "ann@example.test",
			"phone":          "555-0100",
			"street_address": "1 Elm St",
			"extra":          map[string]any{},
		},
		"altcha_payload": "eyJhbGdvcml0aG0iOiJTSEEtMjU2In0=",
	}
	if mutate != nil {
		mutate(body)
	}
	raw, _ := json.Marshal(body)
	return raw
}

func dispatch(t *testing.T, d *Deps, path, method string, body json.RawMessage) Outcome {
	t.Helper()
	return router.Route(context.Background(), Routes(d), path, method, Request{Company: testCompany(), Body: body})
}

func apiError(t *testing.T, r Outcome) *domain.APIError {
	t.Helper()
	err, ok := r.Err()
	if !ok {
		t.Fatalf("expected failure, got %v", r)
	}
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *domain.APIError, got %T: %v", err, err)
	}
	return apiErr
}

func TestChallenge(t *testing.T) {
	d := newTestDeps(t, &fakeVerifier{}, &fakeMailer{})

	r := dispatch(t, d, PathChallenge, http.MethodGet, nil)

	resp, ok := r.Value()
	if !ok {
		t.Fatalf("expected success, got %v", r)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("status = %d", resp.Status)
	}

	var c altcha.Challenge
	if err := json.Unmarshal(resp.Body, &c); err != nil {
		t.Fatalf("decode challenge: %v", err)
	}
	if c.Algorithm != "SHA-256" || c.MaxNumber != 1000 {
		t.Errorf("challenge = %+v", c)
	}
	if exp, ok := (altcha.Payload{Salt: c.Salt}).Expiry(); !ok || !exp.Equal(fixedNow.Add(5*time.Minute)) {
		t.Errorf("salt = %q, want expiry five minutes after now", c.Salt)
	}

	p, ok := altcha.Solve(c)
	if !ok {
		t.Fatal("challenge is unsolvable")
	}
	if _, err := altcha.VerifySolution(p.Encode(), "k", fixedNow); err != nil {
		t.Errorf("issued challenge does not verify: %v", err)
	}
}

func TestSendEstimateEmail(t *testing.T) {
	verifier := &fakeVerifier{}
	mailer := &fakeMailer{}
	d := newTestDeps(t, verifier, mailer)

	r := dispatch(t, d, PathEstimateEmail, http.MethodPost, estimateBodyJSON(nil))

	resp, ok := r.Value()
	if !ok {
		t.Fatalf("expected success, got %v", r)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != `{"success":true}` {
		t.Errorf("response = %d %s", resp.Status, resp.Body)
	}
	if diff := cmp.Diff([]string{"eyJhbGdvcml0aG0iOiJTSEEtMjU2In0="}, verifier.payloads); diff != "" {
		t.Errorf("verified payloads (-want +got):\n%s", diff)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if diff := cmp.Diff([]string{"owner@duff.test"}, msg.To); diff != "" {
		t.Errorf("To (-want +got):\n%s", diff)
	}
	if msg.Subject != "💰 Tree Planting estimate for Ann: $330" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.From != "Estimates <estimate@iec.test>" || msg.ReplyTo != "Support <support@iec.test>" {
		t.Errorf("From/ReplyTo = %q / %q", msg.From, msg.ReplyTo)
	}
	if !strings.Contains(msg.HTML, "Number of trees: <strong>2</strong>") {
		t.Errorf("HTML missing tree count:\n%s", msg.HTML)
	}
}

func TestSendEstimateEmail_TestContactGoesToDev(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDeps(t, &fakeVerifier{}, mailer)

	body := estimateBodyJSON(func(b map[string]any) {
		b["contact"].(map[string]any)["email"] = "ME+TEST@iec.test"
	})
	if r := dispatch(t, d, PathEstimateEmail, http.MethodPost, body); !r.IsSuccess() {
		t.Fatalf("expected success, got %v", r)
	}
	if diff := cmp.Diff([]string{"dev@iec.test"}, mailer.sent[0].To); diff != "" {
		t.Errorf("To (-want +got):\n%s", diff)
	}
}

func TestSendEstimateEmail_Failures(t *testing.T) {
	tests := []struct {
		name        string
		body        json.RawMessage
		verifierErr error
		mailerErr   error
		wantMsg     string
		wantStatus  int
		wantVerify  bool
	}{
		{
			name:       "body not an object",
			body:       json.RawMessage(`[1,2]`),
			wantMsg:    "body should be an object",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing fields",
			body: json.RawMessage(`{"args":{}}`),
			wantMsg: "body.service should be a string, body.contact should be an object, " +
				"body.altcha_payload should be a string",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "payload not base64",
			body:       estimateBodyJSON(func(b map[string]any) { b["altcha_payload"] = "not base64!" }),
			wantMsg:    "body.altcha_payload should be a base64 string",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "altcha mismatch",
			body:        estimateBodyJSON(nil),
			verifierErr: altcha.ErrMismatch,
			wantMsg:     "Security verification failed. Please try again.",
			wantStatus:  http.StatusBadRequest,
			wantVerify:  true,
		},
		{
			name:        "altcha malformed",
			body:        estimateBodyJSON(nil),
			verifierErr: altcha.ErrMalformed,
			wantMsg:     "Security verification error. Please try again.",
			wantStatus:  http.StatusBadRequest,
			wantVerify:  true,
		},
		{
			name:       "unknown service",
			body:       estimateBodyJSON(func(b map[string]any) { b["service"] = "stump_grinding" }),
			wantMsg:    `Invalid service name: body.service should be one of "tree_planting"`,
			wantStatus: http.StatusBadRequest,
			wantVerify: true,
		},
		{
			name: "bad pricing args",
			body: estimateBodyJSON(func(b map[string]any) {
				b["args"] = map[string]any{"tree_size": "3 gallons", "number_of_trees": "two"}
			}),
			wantMsg:    "Invalid pricing function arguments: body.args.number_of_trees should be a number",
			wantStatus: http.StatusBadRequest,
			wantVerify: true,
		},
		{
			name: "bad contact extra",
			body: estimateBodyJSON(func(b map[string]any) {
				b["contact"].(map[string]any)["extra"] = map[string]any{"gate_code": 1234}
			}),
			wantMsg:    "body.contact.extra.gate_code should be a string",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "mail delivery fails",
			body:       estimateBodyJSON(nil),
			mailerErr:  &email.ResendError{Name: "internal_server_error", Message: "boom"},
			wantMsg:    "Failed to send email. Please try again later.",
			wantStatus: http.StatusBadGateway,
			wantVerify: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{err: tt.verifierErr}
			mailer := &fakeMailer{err: tt.mailerErr}
			d := newTestDeps(t, verifier, mailer)

			apiErr := apiError(t, dispatch(t, d, PathEstimateEmail, http.MethodPost, tt.body))

			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.HTTPStatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", apiErr.HTTPStatusCode(), tt.wantStatus)
			}
			if got := len(verifier.payloads) > 0; got != tt.wantVerify {
				t.Errorf("verifier called = %v, want %v", got, tt.wantVerify)
			}
			if len(mailer.sent) != 0 {
				t.Errorf("sent %d emails on failure", len(mailer.sent))
			}
		})
	}
}

func TestSendEstimateEmail_MailErrorKeepsCause(t *testing.T) {
	cause := &email.ResendError{Name: "rate_limit_exceeded", Message: "slow down"}
	d := newTestDeps(t, &fakeVerifier{}, &fakeMailer{err: cause})

	err, _ := dispatch(t, d, PathEstimateEmail, http.MethodPost, estimateBodyJSON(nil)).Err()

	var rerr *email.ResendError
	if !errors.As(err, &rerr) || rerr != cause {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestSendContactEmail(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDeps(t, &fakeVerifier{}, mailer)
	d.Recipients.Local = true

	body := json.RawMessage(`{
		"contact": {"name":"Bo","email":"bo@example.test","phone":"1","street_address":"2 Oak","extra":{"best_time":"noon"}},
		"altcha_payload": "YWJj"
	}`)

	r := dispatch(t, d, PathContactEmail, http.MethodPost, body)

	if !r.IsSuccess() {
		t.Fatalf("expected success, got %v", r)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.Subject != "📞 Contact request from Bo" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if diff := cmp.Diff([]string{"dev@iec.test"}, msg.To); diff != "" {
		t.Errorf("To (-want +got):\n%s", diff)
	}
	if !strings.Contains(msg.HTML, "<strong>best_time:</strong> noon") {
		t.Errorf("HTML missing extra field:\n%s", msg.HTML)
	}
}

func TestSendContactEmail_InvalidBody(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDeps(t, &fakeVerifier{}, mailer)

	apiErr := apiError(t, dispatch(t, d, PathContactEmail, http.MethodPost, json.RawMessage(`{"contact":{}}`)))

	want := "body.contact.name should be a string, body.contact.email should be a string, " +
		"body.contact.phone should be a string, body.contact.street_address should be a string, " +
		"body.contact.extra should be an object, body.altcha_payload should be a string"
	if apiErr.Message != want {
		t.Errorf("Message = %q\nwant      %q", apiErr.Message, want)
	}
	if len(mailer.sent) != 0 {
		t.Error("email sent for invalid body")
	}
}

func TestSendContactEmail_DuplicateKeysUseValidatedValue(t *testing.T) {
	mailer := &fakeMailer{}
	d := newTestDeps(t, &fakeVerifier{}, mailer)

	body := json.RawMessage(`{
		"contact": {"name":"Ann","email":"ann@example.test","phone":"1","street_address":"2 Oak",
			"extra":{"best_time":"noon","best_time":"dusk"},"name":5},
		"altcha_payload": "YWJj"
	}`)

	r := dispatch(t, d, PathContactEmail, http.MethodPost, body)

	if !r.IsSuccess() {
		t.Fatalf("expected success, got %v", r)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.Subject != "📞 Contact request from Ann" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "<strong>best_time:</strong> noon") {
		t.Errorf("HTML missing first extra value:\n%s", msg.HTML)
	}
}

func TestChallenge_CreationFailureIsServerError(t *testing.T) {
	d := newTestDeps(t, &fakeVerifier{}, &fakeMailer{})
	d.Challenges.MaxNumber = 0

	apiErr := apiError(t, dispatch(t, d, PathChallenge, http.MethodGet, nil))

	if apiErr.Type != domain.ErrorTypeServer || apiErr.HTTPStatusCode() != http.StatusInternalServerError {
		t.Errorf("error = %s (%d)", apiErr.Type, apiErr.HTTPStatusCode())
	}
	if apiErr.Message != "Failed to create challenge." || errors.Unwrap(apiErr) == nil {
		t.Errorf("error = %q, cause %v", apiErr.Message, errors.Unwrap(apiErr))
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	d := newTestDeps(t, &fakeVerifier{}, &fakeMailer{})

	err, _ := dispatch(t, d, PathEstimateEmail, http.MethodGet, nil).Err()
	var re *router.RouteError
	if !errors.As(err, &re) || re.Kind != router.MethodNotAllowed {
		t.Errorf("error = %v, want method not allowed", err)
	}
}
