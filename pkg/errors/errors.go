package sentinal_errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers; handlers map it to a status code.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindConflict    Kind = "CONFLICT"
	KindForbidden   Kind = "FORBIDDEN"
	KindNotFound    Kind = "NOT_FOUND"
	KindUnavailable Kind = "UNAVAILABLE"
)

// Reason narrows a Kind to the concrete rule that was violated.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonDuplicateRequest    Reason = "DUPLICATE_REQUEST"
	ReasonAlreadyConnected    Reason = "ALREADY_CONNECTED"
	ReasonAlreadyResolved     Reason = "ALREADY_RESOLVED"
	ReasonBlocked             Reason = "BLOCKED"
	ReasonNotParticipant      Reason = "NOT_PARTICIPANT"
	ReasonNotRecipient        Reason = "NOT_RECIPIENT"
	ReasonSelfRequest         Reason = "SELF_REQUEST"
	ReasonProvisioningPending Reason = "THREAD_PROVISIONING_PENDING"
)

// Common errors
var (
	ErrValidation   = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
)

var kindSentinels = map[Kind]error{
	KindValidation:  ErrValidation,
	KindConflict:    ErrConflict,
	KindForbidden:   ErrForbidden,
	KindNotFound:    ErrNotFound,
	KindUnavailable: ErrUnavailable,
}

// Error is the typed failure returned by the social and messaging core.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Reason != ReasonNone {
			msg = fmt.Sprintf("%s: %s", e.Kind, e.Reason)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels (ErrConflict, ...) and other *Error values
// with the same kind and reason.
func (e *Error) Is(target error) bool {
	if sentinel, ok := kindSentinels[e.Kind]; ok && target == sentinel {
		return true
	}
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Reason == e.Reason
	}
	return false
}

// Reason-level sentinels, comparable with errors.Is.
var (
	ErrDuplicateRequest     = &Error{Kind: KindConflict, Reason: ReasonDuplicateRequest, Message: "a request is already pending between these users"}
	ErrAlreadyConnected     = &Error{Kind: KindConflict, Reason: ReasonAlreadyConnected, Message: "users are already connected"}
	ErrAlreadyResolved      = &Error{Kind: KindConflict, Reason: ReasonAlreadyResolved, Message: "request has already been resolved"}
	ErrBlocked              = &Error{Kind: KindForbidden, Reason: ReasonBlocked, Message: "relationship is blocked"}
	ErrNotParticipant       = &Error{Kind: KindForbidden, Reason: ReasonNotParticipant, Message: "user is not a participant of this thread"}
	ErrNotRecipient         = &Error{Kind: KindForbidden, Reason: ReasonNotRecipient, Message: "only the recipient can accept this request"}
	ErrSelfRequest          = &Error{Kind: KindValidation, Reason: ReasonSelfRequest, Message: "cannot send a request to yourself"}
	ErrProvisioningDegraded = &Error{Kind: KindUnavailable, Reason: ReasonProvisioningPending, Message: "connection accepted, direct thread provisioning pending retry"}
)

// Validation builds a Validation error with a field-level message.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFound error naming the missing resource.
func NotFound(resource string) error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Wrap attaches a cause to a reason sentinel without losing errors.Is matching.
func Wrap(base *Error, cause error) error {
	return &Error{Kind: base.Kind, Reason: base.Reason, Message: base.Message, Err: cause}
}

// KindOf reports the Kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// ReasonOf reports the Reason of err, or ReasonNone.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonNone
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
