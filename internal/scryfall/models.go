package scryfall

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/paramirez/deckzter-seed/internal/card"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
)

// searchPage is one page of a Scryfall list response.
type searchPage struct {
	Object     string        `json:"object"`
	TotalCards int           `json:"total_cards"`
	HasMore    bool          `json:"has_more"`
	NextPage   string        `json:"next_page,omitempty"`
	Data       []card.Record `json:"data"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// APIError is a Scryfall error object.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scryfall API error (HTTP %d): %s", e.Status, e.message())
}

func (e *APIError) message() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Code
}

// Unwrap maps the error onto the application taxonomy so HTTP handlers
// can translate it. A rejected query becomes INVALID_INPUT and any other
// failure UPSTREAM_ERROR.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.Status == http.StatusBadRequest:
		return apperrors.InvalidInput(e.message())
	default:
		return apperrors.Upstream(serviceName, e.Status, e.message())
	}
}

// IsNotFound reports whether err is a Scryfall 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// decodeAPIError builds an APIError from a failed response body. Bodies
// that are not Scryfall error objects are kept verbatim in Details.
func decodeAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Object == "error" {
		if apiErr.Status == 0 {
			apiErr.Status = status
		}
		return &apiErr
	}
	return &APIError{Object: "error", Code: http.StatusText(status), Status: status, Details: string(body)}
}
