package errors

import "errors"

var (
	ErrInvalidInput      = errors.New("order input is invalid")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order state transition is invalid")
)
