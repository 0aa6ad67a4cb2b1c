package apperrors

import (
	"fmt"
	"net/http"
)

// Kind tags an Error with its place in the service error taxonomy.
// Every kind maps to exactly one HTTP status, so controllers never
// inspect error strings.
type Kind int

const (
	KindMissingCredential Kind = iota
	KindInvalidCredential
	KindInvalidPayload
	KindDuplicateEmail
	KindUnresolvedReferences
	KindNotFound
	KindInternal
)

// Error is the single error type crossing the service boundary.
// Details carries structured context for the caller (e.g. the list of
// track ids that failed to resolve); Cause is the underlying error for
// logs only and is never serialized.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus is the one place the taxonomy maps to transport status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingCredential, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindInvalidPayload, KindDuplicateEmail, KindUnresolvedReferences:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func MissingCredential() *Error {
	return &Error{Kind: KindMissingCredential, Message: "Authorization header required"}
}

func InvalidCredential(message string) *Error {
	return &Error{Kind: KindInvalidCredential, Message: message}
}

func InvalidPayload(message string) *Error {
	return &Error{Kind: KindInvalidPayload, Message: message}
}

func DuplicateEmail(email string) *Error {
	return &Error{
		Kind:    KindDuplicateEmail,
		Message: "a user with this email already exists",
		Details: map[string]string{"email": email},
	}
}

func UnresolvedReferences(missingTrackIDs []uint) *Error {
	return &Error{
		Kind:    KindUnresolvedReferences,
		Message: fmt.Sprintf("the following tracks were not found: %s", joinIDs(missingTrackIDs)),
		Details: map[string][]uint{"missing_track_ids": missingTrackIDs},
	}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal hides the cause from callers; the cause stays attached for logging.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

func joinIDs(ids []uint) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", id)
	}
	return s
}
