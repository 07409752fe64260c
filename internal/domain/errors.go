package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch            = errors.New("feed fetch failed")
	ErrRejected         = errors.New("entry rejected")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrIngestInProgress = errors.New("ingest cycle already running")
	ErrInvalidCursor    = errors.New("invalid cursor")
)

// FetchError scopes a network or parse failure to one feed source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// Reject builds an ErrRejected error carrying the reason.
func Reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}
