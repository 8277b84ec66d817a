package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	// ErrMalformedInput covers unreadable tokens, payloads and query input.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNotRegistered is returned when the token subject has no entity.
	ErrNotRegistered = errors.New("entity is not registered on this domain")
	// ErrRegistrationClosed is returned when the domain refuses sign ups.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrInviteCodeRequired is returned in invite mode without a code.
	ErrInviteCodeRequired = errors.New("invite code is required")
	// ErrCaptchaRequired is returned when a captcha key is set but no proof was given.
	ErrCaptchaRequired = errors.New("captcha is required")
	// ErrInvalidForm wraps form schema violations.
	ErrInvalidForm = errors.New("invalid form")
	// ErrNoCredential is returned by gated operations without a session.
	ErrNoCredential = errors.New("no credential")
	// ErrForbidden is returned when the subject lacks the admin tag.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is returned when an operation does not fit the flow state.
	ErrInvalidState = errors.New("invalid state")
)
