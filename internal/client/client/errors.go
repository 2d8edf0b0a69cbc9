package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidResponse = errors.New("invalid server response")
)

// HTTPError is a non-2xx response that none of the sentinels cover.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if d, ok := e.Detail(); ok {
		return fmt.Sprintf("http %d: %s", e.StatusCode, d)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Detail extracts the server's message from the body. It understands
// {"detail": "..."}, {"detail": {"message": "..."}} and the auth envelope
// {"error": "..."}.
func (e *HTTPError) Detail() (string, bool) {
	return detailFromBody(e.Body)
}

func detailFromBody(body []byte) (string, bool) {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s, true
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Detail, &obj); err == nil && obj.Message != "" {
			return obj.Message, true
		}
	}
	if payload.Error != "" {
		return payload.Error, true
	}
	return "", false
}

// mapStatus turns an error response into a sentinel where one applies.
func mapStatus(status int, body []byte) error {
	detail, _ := detailFromBody(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return &HTTPError{StatusCode: status, Body: body}
	}
}
