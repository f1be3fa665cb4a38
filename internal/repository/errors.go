package repository

import "errors"

var (
	// ErrNotFound: the id does not resolve, or resolves outside the caller's
	// visibility. Handlers collapse both to a 404 so existence is not leaked.
	ErrNotFound = errors.New("not found")

	// ErrPermission: the actor is not a participant of the conversation or
	// not the owner of the message/post.
	ErrPermission = errors.New("permission denied")

	// ErrValidation: required input is empty or malformed.
	ErrValidation = errors.New("validation failed")
)
