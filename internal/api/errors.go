package api

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError is a failed backend call. StatusCode is 0 when the request
// never produced an HTTP response (transport failure, timeout).
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error // underlying transport error, if any
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("api: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsAuthorization reports whether err is a 401/403 backend rejection. The
// caller should prompt for re-authentication; the session itself is left
// untouched.
func IsAuthorization(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden
}

// IsConflict reports whether err is a 409, i.e. the slot was taken between
// fetch and booking.
func IsConflict(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return re.StatusCode == http.StatusConflict
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	return re.StatusCode == http.StatusNotFound
}
