package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a render-ready HTTP response. Success and Interrupt payloads
// carry one; the transport writes it without further interpretation.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse creates a response with an empty header set.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status: status,
		Header: make(http.Header),
		Body:   body,
	}
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// Text returns a plain-text response.
func Text(status int, body string) *Response {
	r := NewResponse(status, []byte(body))
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return r
}

// JSON encodes v and returns it as an application/json response.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	r := NewResponse(status, body)
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// MustJSON is JSON for values that always encode, such as string maps.
func MustJSON(status int, v any) *Response {
	r, err := JSON(status, v)
	if err != nil {
		panic(err)
	}
	return r
}

// Write copies the response onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
