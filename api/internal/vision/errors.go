package vision

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse means the service answered with a body that does not
// match its contract. It is not something a user can recover from.
var ErrMalformedResponse = errors.New("vision: malformed service response")

// APIError is the structured failure returned by the recognition service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("vision service error %d (code=%s)", e.StatusCode, e.Code)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
