package broker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is an error response from the OANDA REST API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("oanda api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("oanda api error (status %d)", e.Status)
}

// IsRejection reports whether err is a broker-side rejection rather than
// a transport problem.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var parsed struct {
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
		RejectReason string `json:"rejectReason"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.ErrorCode
		apiErr.Message = parsed.ErrorMessage
		if apiErr.Message == "" {
			apiErr.Message = parsed.RejectReason
		}
	}
	return apiErr
}
