package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed Canvas call.
type Kind string

const (
	// KindUnauthorized means the token is missing, expired or invalid (401).
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden means the token lacks permission (403).
	KindForbidden Kind = "forbidden"

	// KindRateLimited means Canvas throttled the request (429, or 403 "Rate Limit Exceeded"),
	// or the local quota tracker refused to send it.
	KindRateLimited Kind = "rate_limited"

	// KindServerError represents 5xx responses.
	KindServerError Kind = "server_error"

	// KindTransport represents network errors, timeouts and cancellation.
	KindTransport Kind = "transport"

	// KindMalformed means the response body did not have the expected shape.
	KindMalformed Kind = "malformed"

	// KindNotFound means the resource does not exist (404) or a lookup found nothing.
	KindNotFound Kind = "not_found"

	// KindBadRequest represents the remaining 4xx responses.
	KindBadRequest Kind = "bad_request"
)

// Summary returns the user-facing sentence for the kind.
func (k Kind) Summary() string {
	switch k {
	case KindUnauthorized:
		return "Canvas API authentication failed. Please check your access token."
	case KindForbidden:
		return "Canvas API access forbidden. Please check your permissions."
	case KindRateLimited:
		return "Canvas API rate limit exceeded. Please try again later."
	case KindServerError:
		return "Canvas API server error. Please try again later."
	case KindTransport:
		return "Canvas API could not be reached."
	case KindMalformed:
		return "Canvas API returned an unexpected response."
	case KindNotFound:
		return "Canvas resource not found."
	case KindBadRequest:
		return "Canvas API rejected the request."
	default:
		return "Canvas API request failed."
	}
}

// Error is a classified Canvas failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "canvas %s error", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.Path)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage combines the kind summary with the upstream detail.
func (e *Error) UserMessage() string {
	detail := e.Message
	if e.Err != nil {
		if detail != "" {
			detail += ": "
		}
		detail += e.Err.Error()
	}
	if detail == "" {
		return e.Kind.Summary()
	}
	return e.Kind.Summary() + " (" + detail + ")"
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage renders any error for display; classified errors get their
// kind summary, everything else its plain text.
func UserMessage(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return err.Error()
}

// Classify maps a transport error or an HTTP error response to a classified error.
// body is the already-read response body and may be nil.
func Classify(method, path string, resp *http.Response, body []byte, err error) *Error {
	ce := &Error{Method: method, Path: path}

	if err != nil {
		ce.Kind = KindTransport
		ce.Err = err
		if errors.Is(err, context.DeadlineExceeded) {
			ce.Message = "request timed out"
		}
		return ce
	}

	ce.StatusCode = resp.StatusCode
	ce.Message = upstreamMessage(resp, body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		ce.Kind = KindUnauthorized
	case resp.StatusCode == http.StatusForbidden && isThrottled(resp, body):
		ce.Kind = KindRateLimited
	case resp.StatusCode == http.StatusForbidden:
		ce.Kind = KindForbidden
	case resp.StatusCode == http.StatusTooManyRequests:
		ce.Kind = KindRateLimited
	case resp.StatusCode == http.StatusNotFound:
		ce.Kind = KindNotFound
	case resp.StatusCode >= 500:
		ce.Kind = KindServerError
	case resp.StatusCode >= 400:
		ce.Kind = KindBadRequest
	default:
		ce.Kind = KindMalformed
	}
	return ce
}

// malformed wraps a decode failure.
func malformed(method, path string, err error) *Error {
	return &Error{
		Kind:   KindMalformed,
		Method: method,
		Path:   path,
		Err:    err,
	}
}

// Canvas answers throttled requests with 403 and a "Rate Limit Exceeded" body.
func isThrottled(resp *http.Response, body []byte) bool {
	if strings.Contains(strings.ToLower(resp.Status), "rate limit") {
		return true
	}
	return strings.Contains(strings.ToLower(string(body)), "rate limit exceeded")
}

// canvasErrorBody covers the error envelopes Canvas uses.
type canvasErrorBody struct {
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

// upstreamMessage extracts a short description from an error response.
func upstreamMessage(resp *http.Response, body []byte) string {
	msg := resp.Status
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var env canvasErrorBody
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return msg
	}
	if env.Message != "" {
		return msg + ": " + env.Message
	}

	var list []struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Errors, &list) == nil && len(list) > 0 && list[0].Message != "" {
		return msg + ": " + list[0].Message
	}
	return msg
}
