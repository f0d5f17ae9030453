package common

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError is returned when the remote server answers
// with a non success status code
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// AsRequestError extracts a request error from the chain, if any
func AsRequestError(err error) (*RequestError, bool) {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr, true
	}
	return nil, false
}
