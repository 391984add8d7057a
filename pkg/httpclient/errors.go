package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 1 << 20

// ResponseError is a non-2xx response from an upstream service. Body holds
// the raw payload so callers can decode their provider's error format.
type ResponseError struct {
	Service    string
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, string(e.Body))
}

// ReadResponseError drains and closes resp.Body and returns it wrapped in a
// *ResponseError. Only call it for responses the caller treats as failures.
func ReadResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}
	return &ResponseError{Service: service, StatusCode: resp.StatusCode, Body: body}
}
