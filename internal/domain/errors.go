package domain

import "errors"

// Kind classifies an error for transport mapping. The kind travels with
// the error end-to-end; exact HTTP codes are decided at the edge.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindStateConflict
	KindInternal
)

// Error is a typed application error carrying a stable machine-readable
// code and a human-readable message. Store/internal error text never goes
// into Message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// E constructs a typed error.
func E(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ErrNotFound is the store-level sentinel for a missing row. Services
// translate it into an entity-specific typed error.
var ErrNotFound = errors.New("resource not found")

// Typed errors shared across services.
var (
	ErrMatchSelfNotAllowed  = E(KindValidation, "MATCH_SELF_NOT_ALLOWED", "cannot match with yourself")
	ErrMatchAlreadyExists   = E(KindConflict, "MATCH_ALREADY_EXISTS", "match already exists")
	ErrMatchNotFound        = E(KindNotFound, "MATCH_NOT_FOUND", "match not found")
	ErrMatchForbidden       = E(KindForbidden, "MATCH_FORBIDDEN", "not allowed to access this match")
	ErrMatchAlreadyResolved = E(KindStateConflict, "MATCH_ALREADY_RESOLVED", "match already resolved")
	ErrMatchNotAccepted     = E(KindStateConflict, "MATCH_NOT_ACCEPTED", "match is not accepted")

	ErrMessageNotFound  = E(KindNotFound, "MESSAGE_NOT_FOUND", "message not found")
	ErrMessageForbidden = E(KindForbidden, "MESSAGE_FORBIDDEN", "not allowed to update this message")

	ErrScheduleNotFound       = E(KindNotFound, "SCHEDULE_NOT_FOUND", "schedule not found")
	ErrScheduleForbidden      = E(KindForbidden, "SCHEDULE_FORBIDDEN", "not allowed to modify this schedule")
	ErrScheduleAlreadyHandled = E(KindStateConflict, "SCHEDULE_ALREADY_HANDLED", "schedule already handled")

	ErrNotificationNotFound = E(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")

	ErrInternal = E(KindInternal, "INTERNAL_SERVER_ERROR", "unexpected error")
)

// Validation builds a VALIDATION_ERROR with a caller-supplied message.
func Validation(message string) *Error {
	return E(KindValidation, "VALIDATION_ERROR", message)
}
