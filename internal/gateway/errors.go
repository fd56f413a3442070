package gateway

import (
	"errors"
	"strings"
)

// Class is the retry classification of a failed attempt
type Class int

const (
	Permanent Class = iota
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "permanent"
}

// transientMarkers are matched case-insensitively against the upstream error text
var transientMarkers = []string{"503", "unavailable", "overloaded"}

// Classify decides from an upstream error message whether retrying may help.
// Providers only expose overload conditions through their message text, so this is a substring
// match; swap it for a status-code check if the provider ever exposes one.
func Classify(message string) Class {
	lower := strings.ToLower(message)
	for _, marker := range transientMarkers {
		if strings.Contains(lower, marker) {
			return Transient
		}
	}
	return Permanent
}

// FailureKind is what the boundary layer needs to know about a failed generation
type FailureKind int

const (
	KindNone   FailureKind = iota // success
	KindBusy                      // transient condition outlasted the attempt budget
	KindFailed                    // permanent upstream failure or configuration problem
)

func (k FailureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBusy:
		return "busy"
	default:
		return "failed"
	}
}

var (
	// ErrTransientExhausted marks a generation that failed transiently on every attempt
	ErrTransientExhausted = errors.New("transient upstream error: retries exhausted")

	// ErrEmptyResponse is the failure recorded when the model answers with no text
	ErrEmptyResponse = errors.New("empty response")

	errAttemptTimeout = errors.New("attempt timed out")
)

// GenerationError is the terminal failure of one Generate call
type GenerationError struct {
	Kind     FailureKind
	Attempts int
	Err      error // last upstream error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransientExhausted) match busy failures
func (e *GenerationError) Is(target error) bool {
	return target == ErrTransientExhausted && e.Kind == KindBusy
}

// KindOf maps the error returned by Generate to the kind the boundary layer reports.
// Errors that did not come from the gateway (context cancellation, bad input) are KindFailed.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	if errors.Is(err, ErrTransientExhausted) {
		return KindBusy
	}
	return KindFailed
}

// AttemptsOf reports how many provider calls a failed generation made, or 0 if unknown
func AttemptsOf(err error) int {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Attempts
	}
	return 0
}
