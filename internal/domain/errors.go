package domain

import "errors"

var (
	ErrActiveSessionExists   = errors.New("vehicle already has an active parking session")
	ErrSessionNotActive      = errors.New("parking session is not active")
	ErrSlotUnavailable       = errors.New("parking slot is not available")
	ErrNoCapacity            = errors.New("no parking slots available in this zone")
	ErrInsufficientFunds     = errors.New("insufficient wallet balance")
	ErrNoAvailability        = errors.New("no parking slots available for the selected time")
	ErrReservationNotPending = errors.New("reservation is not pending payment")
	ErrAlreadyTerminal       = errors.New("reservation is no longer active")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrForbidden             = errors.New("forbidden")
)
