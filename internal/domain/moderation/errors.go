package moderation

import (
	"errors"
	"fmt"
	"time"
)

// StaleResetReason is recorded on jobs the sweep moves back to pending.
const StaleResetReason = "reset: previous processing attempt did not finish"

type ClientInputError struct {
	Msg string
}

func (e *ClientInputError) Error() string { return "invalid job input: " + e.Msg }

type TransientProviderError struct {
	Provider Detector
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("%s: transient provider error: %v", e.Provider, e.Err)
}
func (e *TransientProviderError) Unwrap() error { return e.Err }

type PermanentProviderError struct {
	Provider Detector
	Err      error
}

func (e *PermanentProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}
func (e *PermanentProviderError) Unwrap() error { return e.Err }

type StaleProcessingError struct {
	VideoID string
	Since   time.Time
}

func (e *StaleProcessingError) Error() string {
	return fmt.Sprintf("video %s stuck in processing since %s", e.VideoID, e.Since.UTC().Format(time.RFC3339))
}

type ErrorClass string

const (
	ClassNone        ErrorClass = ""
	ClassClientInput ErrorClass = "client_input"
	ClassTransient   ErrorClass = "transient"
	ClassPermanent   ErrorClass = "permanent"
	ClassStale       ErrorClass = "stale"
)

// Classify places err in the taxonomy. Unknown errors are permanent.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var ci *ClientInputError
	var tp *TransientProviderError
	var sp *StaleProcessingError
	switch {
	case errors.As(err, &ci):
		return ClassClientInput
	case errors.As(err, &tp):
		return ClassTransient
	case errors.As(err, &sp):
		return ClassStale
	default:
		return ClassPermanent
	}
}

func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
