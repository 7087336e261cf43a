package commons

import (
	"errors"
	"fmt"
)

// Store level sentinels. Repositories return these (possibly wrapped) and
// services translate them into a kinded Error.
var (
	ErrRecordNotFound      = errors.New("Record not found")
	ErrInsufficientBalance = errors.New("Insufficient balance")
	ErrDuplicateRecord     = errors.New("Record already exists")
	ErrSameAccount         = errors.New("Sender and receiver are the same account")
	ErrBalanceLimit        = errors.New("Balance limit exceeded")
)

type ErrorKind string

const (
	KindNotFound                ErrorKind = "NOT_FOUND"
	KindDuplicateUsername       ErrorKind = "DUPLICATE_USERNAME"
	KindInvalidAmount           ErrorKind = "INVALID_AMOUNT"
	KindInsufficientFunds       ErrorKind = "INSUFFICIENT_FUNDS"
	KindInvalidCredentials      ErrorKind = "INVALID_CREDENTIALS"
	KindRateProviderUnavailable ErrorKind = "RATE_PROVIDER_UNAVAILABLE"
	KindValidation              ErrorKind = "VALIDATION_ERROR"
	KindUnauthorized            ErrorKind = "UNAUTHORIZED"
	KindForbidden               ErrorKind = "FORBIDDEN"
	KindInternal                ErrorKind = "INTERNAL"
)

// Error is the one failure shape every service operation returns.
// Message is safe to show to callers; Detail carries per-field validation
// messages; Err is the underlying cause and never leaves the process.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func ValidationError(detail string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Detail: detail}
}

func NotFound(message string, cause error) *Error {
	return NewError(KindNotFound, message, cause)
}

func InternalError(cause error) *Error {
	return NewError(KindInternal, "An unexpected error occurred", cause)
}

// KindOf reports the kind carried by err. Errors that are not a *Error are
// treated as internal faults.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindInternal
}

func MessageOf(err error) string {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Message
	}
	return "An unexpected error occurred"
}

func DetailOf(err error) string {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Detail
	}
	return ""
}
