package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidLogin      = errors.New("invalid credentials")
	ErrUserNotRegistered = errors.New("user not registered")
	ErrUnhealthy         = errors.New("assistant backend unhealthy")
)
