package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnsupportedType = errors.New("unsupported attachment type")
	ErrUpload          = errors.New("upload failed")
	ErrChannel         = errors.New("channel failure")
)

// ValidationError rejects a malformed message before it reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnsupportedTypeError is returned when an attachment extension is not allow-listed.
type UnsupportedTypeError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("file %q has no extension", e.Filename)
	}
	return fmt.Sprintf("file type %q is not allowed", e.Extension)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// UploadError wraps a failure of the object store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{ErrUpload, e.Err} }

// ChannelError is a transport failure on a live connection.
type ChannelError struct {
	UserID int64
	Err    error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel of user %d: %v", e.UserID, e.Err)
}

func (e *ChannelError) Unwrap() []error { return []error{ErrChannel, e.Err} }
