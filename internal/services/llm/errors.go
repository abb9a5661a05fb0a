package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tagbench/internal/services"
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := summarizePayloadSnippet(e.Body)
	return fmt.Sprintf("%s request: http %d: %s", e.Backend, e.StatusCode, body)
}

// Transient reports whether the status is worth retrying: request timeout,
// rate limiting, and every server-side error (incl. 503 and 529 overloaded).
func (e *StatusError) Transient() bool {
	return TransientStatus(e.StatusCode)
}

// TransientStatus reports whether an HTTP status code is retryable.
func TransientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// EmptyContentError reports a completion that carried no usable text.
type EmptyContentError struct {
	Backend      string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("%s completion: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Backend, e.FinishReason, e.Refusal, e.Snippet)
}

// RetryAfter returns the backend-supplied retry hint carried by err, if any.
func RetryAfter(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}

// Classify tags err with services.ErrTransient when it is retryable and with
// services.ErrConfiguration when it indicates bad credentials or an unknown
// model. Context cancellation passes through untouched; callers must check
// their own context before retrying a deadline error.
func Classify(backend, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrConfiguration) {
		return err
	}

	var emptyErr *EmptyContentError
	if errors.As(err, &emptyErr) {
		return services.Wrap(services.ErrTransient, backend, operation, "empty completion", err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Transient():
			return services.Wrap(services.ErrTransient, backend, operation, "backend unavailable", err)
		case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, backend, operation, "credentials rejected", err)
		case statusErr.StatusCode == http.StatusNotFound:
			return services.Wrap(services.ErrConfiguration, backend, operation, "model or endpoint not found", err)
		default:
			return err
		}
	}

	if isTimeout(err) {
		return services.Wrap(services.ErrTransient, backend, operation, "request timed out", err)
	}
	return err
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// ParseRetryAfter interprets a Retry-After header as seconds or an HTTP date.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
