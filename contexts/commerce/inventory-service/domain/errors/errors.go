package errors

import "errors"

var (
	ErrInvalidInput        = errors.New("inventory input is invalid")
	ErrProductNotFound     = errors.New("product not found")
	ErrDuplicateSKU        = errors.New("sku already registered")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("reservation state transition is invalid")
)
