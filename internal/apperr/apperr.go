// Package apperr defines the structured error taxonomy shared by the ticket
// core. Lifecycle guard violations are recovered into these values and
// surfaced to the HTTP layer, never thrown as unhandled faults.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound means the referenced entity does not exist.
	KindNotFound Kind = iota
	// KindForbidden means the acting user may not perform the operation.
	KindForbidden
	// KindInvalidState means the operation is not valid for the entity's
	// current lifecycle state. This is the dominant error kind in the core.
	KindInvalidState
	// KindValidation means the input was malformed.
	KindValidation
	// KindRender means QR image generation failed. Non-fatal at call sites.
	KindRender
	// KindExhaustedRetries means the access-key collision retry cap was hit.
	KindExhaustedRetries
	// KindInternal covers storage and other unexpected failures.
	KindInternal
)

// Error carries a kind plus a human-readable message. For scan rejections it
// also carries the ticket's current status so the door operator can explain
// the denial instead of showing a bare failure.
type Error struct {
	Kind    Kind
	Message string

	// TicketStatus is set on InvalidState errors raised against a ticket.
	TicketStatus string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }

// InvalidTicketState builds an InvalidState error annotated with the
// ticket's current status.
func InvalidTicketState(msg, status string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg, TicketStatus: status}
}

func Render(msg string, cause error) *Error {
	return &Error{Kind: KindRender, Message: msg, cause: cause}
}

func ExhaustedRetries(msg string) *Error {
	return &Error{Kind: KindExhaustedRetries, Message: msg}
}

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf extracts the kind from err, defaulting to KindInternal for errors
// outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
