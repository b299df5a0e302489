// Package services defines the business logic of the MDT: record filing,
// citizen lookups, officer accounts and bot tokens. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCitizenNotFound indicates that no game character derives the
	// requested citizen ID.
	ErrCitizenNotFound = citizens.ErrCitizenNotFound

	// ErrInvalid wraps every validation failure. Use errors.Is.
	ErrInvalid = domain.ErrInvalidRecord

	// ErrForbidden is returned when the acting officer may not perform the
	// operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUsernameTaken is returned when creating an officer whose username
	// already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrBadCredentials is returned for unknown users, inactive accounts and
	// wrong passwords alike.
	ErrBadCredentials = auth.ErrBadCredentials

	// ErrTokenInvalid is returned for unknown or revoked bot tokens.
	ErrTokenInvalid = errors.New("invalid bot token")
)

// invalid builds a validation error matching ErrInvalid.
func invalid(msg string) error { return &domain.ValidationError{Msg: msg} }
