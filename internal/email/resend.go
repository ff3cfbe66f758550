// Package email renders notification emails and delivers them through the
// Resend HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Message is a single outgoing email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Sender delivers a message and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendError is a non-2xx reply from the Resend API.
type ResendError struct {
	StatusCode int
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *ResendError) Error() string {
	return fmt.Sprintf("resend API error: %s - %s", e.Name, e.Message)
}

// ResendClient sends mail with the Resend API. Transport errors, 429 and 5xx
// replies (other than 501) are retried with backoff. Other 4xx replies are
// returned at once.
type ResendClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

type resendSettings struct {
	retryMax  int
	timeout   time.Duration
	transport http.RoundTripper
	logger    *slog.Logger
}

// ResendOption configures a ResendClient.
type ResendOption func(*resendSettings)

// WithRetryMax sets how many times a failed send is retried.
func WithRetryMax(n int) ResendOption {
	return func(s *resendSettings) { s.retryMax = n }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ResendOption {
	return func(s *resendSettings) { s.timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) ResendOption {
	return func(s *resendSettings) { s.transport = rt }
}

// WithLogger sets the logger for send results.
func WithLogger(l *slog.Logger) ResendOption {
	return func(s *resendSettings) { s.logger = l }
}

// NewResendClient creates a client for the API at baseURL.
func NewResendClient(baseURL, apiKey string, opts ...ResendOption) *ResendClient {
	s := resendSettings{retryMax: 2, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = s.retryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = s.timeout
	if s.transport != nil {
		rc.HTTPClient.Transport = s.transport
	}
	// Return the last response instead of a generic "giving up" error so
	// the Resend error body can be decoded.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &ResendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    rc.StandardClient(),
		logger:  s.logger,
	}
}

// Send posts msg to /emails.
func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := &ResendError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, rerr); err != nil || rerr.Name == "" {
			rerr.Name = http.StatusText(resp.StatusCode)
			rerr.Message = strings.TrimSpace(string(raw))
		}
		return "", rerr
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}

	c.logger.Info("email sent",
		slog.String("id", out.ID),
		slog.Int("recipients", len(msg.To)))

	return out.ID, nil
}
