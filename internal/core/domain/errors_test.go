package domain

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "error with type and message",
			err:      &APIError{Type: ErrorTypeInvalidRequest, Message: "bad request"},
			expected: "invalid_request: bad request",
		},
		{
			name:     "error with type, code, and message",
			err:      &APIError{Type: ErrorTypeInvalidRequest, Code: ErrorCodeInvalidJSON, Message: "Invalid JSON"},
			expected: "invalid_request (invalid_json): Invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{"invalid request", &APIError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"verification", &APIError{Type: ErrorTypeVerification}, http.StatusBadRequest},
		{"forbidden origin", &APIError{Type: ErrorTypeForbiddenOrigin}, http.StatusBadRequest},
		{"upstream", &APIError{Type: ErrorTypeUpstream}, http.StatusBadGateway},
		{"server", &APIError{Type: ErrorTypeServer}, http.StatusInternalServerError},
		{"unknown type", &APIError{Type: "mystery"}, http.StatusInternalServerError},
		{"explicit override", &APIError{Type: ErrorTypeInvalidRequest, StatusCode: http.StatusRequestEntityTooLarge}, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Builders(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ErrUpstream("Failed to send email").
		WithCode("resend").
		WithParam("body.contact.email").
		WithCause(cause)

	if err.Code != "resend" || err.Param != "body.contact.email" {
		t.Errorf("builders did not set fields: %+v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
	if got := err.Body()["error"]; got != "Failed to send email" {
		t.Errorf("Body()[error] = %q", got)
	}
}

func TestResponse_Write(t *testing.T) {
	r := MustJSON(http.StatusOK, map[string]bool{"success": true})
	rec := httptest.NewRecorder()

	if err := r.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Body.String(); got != `{"success":true}` {
		t.Errorf("body = %q", got)
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := NoContent().Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}
