package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a datastore failure so API handlers can map it to a stable
// response without string matching.
type Kind int

const (
	// KindNotFound marks a missing client, stream, billing record, or
	// config key.
	KindNotFound Kind = iota + 1
	// KindConflict marks uniqueness violations (duplicate port, duplicate
	// client email).
	KindConflict
	// KindLimitExceeded marks a client at its stream cap.
	KindLimitExceeded
	// KindValidation marks malformed input fields.
	KindValidation
)

// Error is a datastore failure carrying a stable kind and a human-readable
// message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func notFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func limitExceededf(format string, args ...interface{}) error {
	return &Error{Kind: KindLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func hasKind(err error, kind Kind) bool {
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return storageErr.Kind == kind
	}
	return false
}

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsLimitExceeded reports whether err is a resource-cap failure.
func IsLimitExceeded(err error) bool { return hasKind(err, KindLimitExceeded) }

// IsValidation reports whether err is a malformed-input failure.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// ErrInvalidCredentials is returned when operator authentication fails.
var ErrInvalidCredentials = errors.New("invalid credentials")
