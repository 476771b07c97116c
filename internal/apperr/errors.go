// Package apperr holds the sentinel errors shared by the repositories and
// the transports that map them to status codes.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrNoText is returned when OCR produced no usable text. The recognizer
	// does not distinguish an empty image from a recognition failure.
	ErrNoText = errors.New("no text found in image")
)
