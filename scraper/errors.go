package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-perfumes/browser"
	"github.com/aluiziolira/go-scrape-perfumes/pipeline"
)

// ErrTransient indicates a navigation, timeout or DOM-shape hiccup that a short cooldown
// usually clears.
type ErrTransient struct {
	Err error
}

func (e ErrTransient) Error() string {
	return fmt.Errorf("transient: %w", e.Err).Error()
}

func (e ErrTransient) Unwrap() error {
	return e.Err
}

// ErrGroupEmpty indicates a target group resolved to no items.
type ErrGroupEmpty struct {
	Brand string
	Err   error
}

func (e ErrGroupEmpty) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("group %q: no items found", e.Brand)
	}
	return fmt.Errorf("group %q: no items found: %w", e.Brand, e.Err).Error()
}

func (e ErrGroupEmpty) Unwrap() error {
	return e.Err
}

// ErrItemFailed is the terminal outcome of an item whose retry budget ran out.
type ErrItemFailed struct {
	URL      string
	Kind     errorKind
	Attempts int
	Err      error
}

func (e ErrItemFailed) Error() string {
	return fmt.Errorf("item %s failed after %d attempts (%s): %w", e.URL, e.Attempts, e.Kind, e.Err).Error()
}

func (e ErrItemFailed) Unwrap() error {
	return e.Err
}

type errorKind string

const (
	kindBlocked   errorKind = "blocked"
	kindTransient errorKind = "transient"
	kindSession   errorKind = "session_start"
	kindFatal     errorKind = "persistence"
)

// classifyError sorts any render or extraction error into the retry taxonomy. Anything
// that is not a recognised block, session or persistence failure is transient.
func classifyError(err error) errorKind {
	var blocked browser.ErrBlocked
	if errors.As(err, &blocked) {
		return kindBlocked
	}
	var session browser.ErrSessionStart
	if errors.As(err, &session) {
		return kindSession
	}
	var persistence pipeline.ErrPersistence
	if errors.As(err, &persistence) {
		return kindFatal
	}
	return kindTransient
}

// isFatal reports whether err must end the run.
func isFatal(err error) bool {
	switch classifyError(err) {
	case kindSession, kindFatal:
		return true
	}
	return false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var blocked browser.ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var session browser.ErrSessionStart
	if errors.As(err, &session) {
		return "session_start"
	}
	var persistence pipeline.ErrPersistence
	if errors.As(err, &persistence) {
		return "persistence"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var nav browser.ErrNavigation
	if errors.As(err, &nav) {
		return "navigation"
	}
	var transient ErrTransient
	if errors.As(err, &transient) {
		return "transient"
	}
	return "other"
}
