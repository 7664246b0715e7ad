package gateway

import "errors"

var (
	ErrUnauthorized          = errors.New("gateway: unauthorized")
	ErrInvalidInput          = errors.New("gateway: invalid input")
	ErrPaymentNotFound       = errors.New("gateway: payment not found")
	ErrAlreadyProcessed      = errors.New("gateway: already processed")
	ErrExpired               = errors.New("gateway: payment expired")
	ErrInsufficientBalance   = errors.New("gateway: insufficient balance")
	ErrBusinessNotRegistered = errors.New("gateway: business not registered")
	ErrAlreadyRegistered     = errors.New("gateway: business already registered")
	ErrTransferFailed        = errors.New("gateway: asset transfer failed")
	ErrAlreadyInitialized    = errors.New("gateway: already initialized")
	ErrNotInitialized        = errors.New("gateway: not initialized")
)
