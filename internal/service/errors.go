package service

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateReading = errors.New("a measurement for this type already exists this month")
	ErrReadingNotFound  = errors.New("measurement not found")
	ErrAlreadyConfirmed = errors.New("measurement already confirmed")
	ErrNoReadings       = errors.New("no measurements found")
)

// InputError carries the reason a request was rejected. It matches ErrInvalidInput.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

func (e *InputError) Unwrap() error { return ErrInvalidInput }
