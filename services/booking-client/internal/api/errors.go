package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRemoteOperationFailed matches every failed call made through Client.
var ErrRemoteOperationFailed = errors.New("remote operation failed")

// StatusError is a non-2xx answer from the booking API.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

func opError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteOperationFailed, err)
}
