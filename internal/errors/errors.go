package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels every layer marks its failures with. Handlers map them to a status.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrConfigurationGap = errors.New("configuration gap")
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrDatabase         = errors.New("database error")

	// sentinelTable is checked in order. An error marked with several
	// sentinels reports the first one listed.
	sentinelTable = []struct {
		sentinel error
		status   int
		code     string
	}{
		{ErrValidation, http.StatusBadRequest, "validation_error"},
		{ErrPermissionDenied, http.StatusForbidden, "forbidden"},
		{ErrInvalidState, http.StatusConflict, "invalid_state"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrConfigurationGap, http.StatusInternalServerError, "configuration_gap"},
		{ErrDatabase, http.StatusInternalServerError, "internal_error"},
	}
)

// ErrorBuilder chains context onto an error. Mark must be the last call.
type ErrorBuilder struct {
	err error
}

func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint attaches the message shown to API callers.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}

func (b *ErrorBuilder) Err() error {
	return b.err
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConfigurationGap(err error) bool {
	return errors.Is(err, ErrConfigurationGap)
}

// HTTPStatus returns the status of the first matching entry in sentinelTable.
func HTTPStatus(err error) int {
	for _, entry := range sentinelTable {
		if errors.Is(err, entry.sentinel) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	for _, entry := range sentinelTable {
		if errors.Is(err, entry.sentinel) {
			return entry.code
		}
	}
	return "internal_error"
}

// DisplayMessage returns the caller-facing hints, or a generic message for
// errors that carry none.
func DisplayMessage(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			return "request failed, it is safe to retry"
		}
		return err.Error()
	}
	return errors.FlattenHints(err)
}
