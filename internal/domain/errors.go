package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidEncoding  = errors.New("invalid encoding")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrCyclicValue      = errors.New("cyclic value")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
)
