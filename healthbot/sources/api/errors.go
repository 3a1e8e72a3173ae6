package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotSignedIn means no token is stored; no request was made.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrUnauthorized matches any 401 and locally expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TransportError wraps failures where no usable response came back.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DetailOf returns the message worth showing a user, or fallback.
func DetailOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
