package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrNetworkFailure indicates the remote API could not be reached or answered with an error.
	ErrNetworkFailure = errors.New("network failure")

	// ErrNoDataAvailable indicates the request failed and the local store had nothing to serve.
	ErrNoDataAvailable = errors.New("no data available")

	// ErrOffline indicates the client is marked offline.
	ErrOffline = errors.New("offline")
)

// HTTPError is a non-2xx response of the remote API. It matches ErrNetworkFailure.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Detail)
}

// Is makes errors.Is(err, ErrNetworkFailure) true for HTTP errors.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// Retryable reports whether the status may succeed on a later attempt.
func (e *HTTPError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// newHTTPError reads the FastAPI-style {"detail": ...} body.
// Validation errors carry a list; the first message is used.
func newHTTPError(status int, body []byte) *HTTPError {
	detail := ""
	if gjson.ValidBytes(body) {
		d := gjson.GetBytes(body, "detail")
		switch {
		case d.IsArray():
			detail = d.Get("0.msg").String()
		case d.Exists():
			detail = d.String()
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &HTTPError{Status: status, Detail: detail}
}
