// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the referenced chat, message, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates an authorization or ownership violation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a malformed request value (empty body, bad role).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState indicates an operation on an entity in the wrong state,
	// such as editing a deleted message.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyDeleted indicates a repeated delete of a soft-deleted message.
	ErrAlreadyDeleted = errors.New("already deleted")

	// ErrConflict indicates a duplicate, e.g. adding an existing member.
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable indicates the persistence collaborator failed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrIDGeneration indicates the id generator could not produce an id.
	ErrIDGeneration = errors.New("id generation failed")
)
