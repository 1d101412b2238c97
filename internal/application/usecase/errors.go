package usecase

import (
	"errors"
	"fmt"
)

// ValidationError reports a problem with user input or with the structure of
// a fetched document. Its message is always safe to show to the issuer.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// FetchError reports a failed feed retrieval or parse. The wrapped cause is
// shown to the issuer of an interactive add; scheduled polls only log it.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// StoreError reports a failed operation against the persistent store. The
// cause stays in logs; issuers see a generic message.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}
func (e *StoreError) Unwrap() error { return e.Err }

// UserMessage renders err as the single user-displayable string the command
// boundary returns. Internal causes are included only where the original
// marks them safe.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Msg
	}
	var ferr *FetchError
	if errors.As(err, &ferr) {
		return fmt.Sprintf("failed to fetch feed: %v", ferr.Err)
	}
	var serr *StoreError
	if errors.As(err, &serr) {
		return "storage operation failed"
	}
	return err.Error()
}
