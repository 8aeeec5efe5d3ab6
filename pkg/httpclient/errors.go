package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
)

// StatusError is an upstream response with a server-side failure status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// upstreamErrorBody accepts both shapes GraphQL gateways use for errors:
// a bare string or a list of {message} objects.
type upstreamErrorBody struct {
	Errors json.RawMessage `json:"errors"`
}

// ErrorMessages extracts human readable messages from a GraphQL style
// "errors" member, which may be a string or an array of objects.
func ErrorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []string{single}
	}
	var list []struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &list) == nil {
		msgs := make([]string, 0, len(list))
		for _, e := range list {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		return msgs
	}
	return []string{string(raw)}
}

// ParseResponseError consumes and closes a non-2xx response and converts it
// to an AppError carrying the upstream's message.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", upstream, resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(bodyBytes))
	var body upstreamErrorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		if msgs := ErrorMessages(body.Errors); len(msgs) > 0 {
			message = strings.Join(msgs, "; ")
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapUpstreamError(resp.StatusCode, message, upstream)
}

func mapUpstreamError(status int, message, upstream string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusGone:
		return apperrors.Gone(qualified)
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusTooManyRequests, status >= 500:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: qualified,
			Status:  http.StatusServiceUnavailable,
			Err:     fmt.Errorf("%s returned status %d: %w", upstream, status, apperrors.ErrServiceUnavail),
		}
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualified,
			Status:  http.StatusBadGateway,
		}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
