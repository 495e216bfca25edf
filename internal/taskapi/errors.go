package taskapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks failures where no HTTP response was received.
	ErrTransport = errors.New("task service unreachable")
	// ErrDecode marks responses whose body is not the expected JSON.
	ErrDecode = errors.New("decode task service response")
)

// StatusError is returned when the service answers with an unexpected status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
