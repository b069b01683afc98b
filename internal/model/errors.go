package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Form/Entry related errors
	ErrFormNotFound  = errors.New("form not found")
	ErrFormInactive  = errors.New("form inactive")
	ErrEntryNotFound = errors.New("entry not found")
	ErrFieldNotFound = errors.New("field not found")

	// Upload related errors
	ErrUploadRejected = errors.New("upload rejected")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
