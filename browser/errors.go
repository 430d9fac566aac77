package browser

import (
	"fmt"
)

// ErrBlocked indicates the target refused or challenged the request. Only a session
// restart recovers from it.
type ErrBlocked struct {
	URL    string
	Reason string
}

func (e ErrBlocked) Error() string {
	return fmt.Sprintf("blocked: %s (%s)", e.Reason, e.URL)
}

// ErrSessionStart indicates the browser could not be launched or connected.
type ErrSessionStart struct {
	Err error
}

func (e ErrSessionStart) Error() string {
	return fmt.Errorf("session start: %w", e.Err).Error()
}

func (e ErrSessionStart) Unwrap() error {
	return e.Err
}

// ErrNavigation wraps a failed navigation or DOM read.
type ErrNavigation struct {
	URL string
	Err error
}

func (e ErrNavigation) Error() string {
	return fmt.Errorf("navigate %s: %w", e.URL, e.Err).Error()
}

func (e ErrNavigation) Unwrap() error {
	return e.Err
}
