package services

import "errors"

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
	ErrSitterNotFound         = errors.New("sitter not found")
	ErrPayoutsNotEnabled      = errors.New("payouts not enabled")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)
