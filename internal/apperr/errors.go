package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidFormat = errors.New("invalid format")
	ErrDisabled      = errors.New("disabled")
)
