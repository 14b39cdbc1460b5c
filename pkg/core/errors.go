package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound      = errors.New("moment not found")
	ErrAlreadyExists = errors.New("moment already exists")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrCorrupt       = errors.New("stored moment is corrupt")
	ErrReadOnly      = errors.New("repository is in read-only mode")
	ErrClosed        = errors.New("service is closed")
)

// ValidationKind identifies which constraint an input violated.
type ValidationKind string

const (
	KindEmptyTitle         ValidationKind = "empty-title"
	KindTitleTooLong       ValidationKind = "title-too-long"
	KindDescriptionTooLong ValidationKind = "description-too-long"
	KindMissingDate        ValidationKind = "missing-date"
	KindBadDateFormat      ValidationKind = "bad-date-format"
	KindInvalidDate        ValidationKind = "invalid-date"
	KindBadRepeatFrequency ValidationKind = "bad-repeat-frequency"
	KindMissingID          ValidationKind = "missing-id"
	KindTimestampsInverted ValidationKind = "timestamps-inverted"
)

// ValidationError reports the first constraint an input or record violated.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(kind ValidationKind, field, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: msg}
}

// NotFoundError reports that the target of an update or delete does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("moment %q not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageKind classifies a storage failure.
type StorageKind string

const (
	StorageIO         StorageKind = "io"
	StorageQuota      StorageKind = "quota-exceeded"
	StorageCorruption StorageKind = "corruption"
)

// StorageError wraps any failure raised by a Repository. The original cause is
// kept and reachable through errors.Unwrap.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrQuotaExceeded) match quota failures even when the
// adapter reported them through a driver-specific error.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.Kind == StorageQuota
	case ErrCorrupt:
		return e.Kind == StorageCorruption
	}
	return false
}

// IsQuotaExceeded reports whether err is a storage failure caused by
// insufficient device capacity.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// wrapStorage classifies an adapter failure. Validation errors raised at the
// storage boundary pass through unchanged.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	var ve *ValidationError
	if errors.As(err, &se) || errors.As(err, &ve) {
		return err
	}
	kind := StorageIO
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		kind = StorageQuota
	case errors.Is(err, ErrCorrupt):
		kind = StorageCorruption
	}
	return &StorageError{Op: op, Kind: kind, Err: err}
}
