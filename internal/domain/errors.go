package domain

import "errors"

// Sentinel errors for the transfer execution core.
// Callers match them with errors.Is; messages are wrapped at call sites.
var (
	// ErrTransferNotFound is returned when a scheduled transfer id is unknown
	ErrTransferNotFound = errors.New("scheduled transfer not found")

	// ErrRecurringNotFound is returned when a recurring definition id is unknown
	ErrRecurringNotFound = errors.New("recurring transfer not found")

	// ErrInvalidTransferState is returned when a status precondition is violated,
	// e.g. executing a transfer that is not scheduled or cancelling one mid-flight
	ErrInvalidTransferState = errors.New("invalid transfer state")

	// ErrUnauthorized is returned when the user has no live authorization
	ErrUnauthorized = errors.New("authorization missing or invalid")

	// ErrExceedsAuthorization is returned when the total required amount is over
	// the authorization limit. Recoverable: the transfer stays scheduled.
	ErrExceedsAuthorization = errors.New("transfer amount exceeds authorization limit")

	// ErrRecipientSendFailure is returned when one or more recipient sends failed
	ErrRecipientSendFailure = errors.New("one or more recipient sends failed")

	// ErrDuplicateInstance is returned when a recurrence instance already exists
	// for the same definition and occurrence date
	ErrDuplicateInstance = errors.New("recurrence instance already exists")
)
