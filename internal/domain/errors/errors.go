// Package errors provides standardized error types for the domain layer.
// Every failure surfaced to callers carries a Kind so handlers and
// orchestration code can branch on the failure class without string
// matching, while the Message stays safe to show to a user.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	// KindValidation indicates the request was rejected before any
	// network call was made.
	KindValidation Kind = "validation"

	// KindUpstream indicates an external service rejected or failed
	// the request. Message carries the upstream's own wording when
	// one was provided.
	KindUpstream Kind = "upstream"

	// KindSigning indicates the wallet declined or failed to sign.
	KindSigning Kind = "signing"

	// KindOnChain indicates the transaction landed but failed during
	// execution on the chain.
	KindOnChain Kind = "onchain"

	// KindTimeout indicates confirmation could not be established
	// within the polling budget. The transaction outcome is unknown.
	KindTimeout Kind = "timeout"

	// KindConflict indicates the operation collides with one already
	// in flight for the same target.
	KindConflict Kind = "conflict"

	// KindNotFound indicates the requested resource does not exist.
	KindNotFound Kind = "not_found"

	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = "internal"
)

// Standard error categories
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("operation already in flight")
	ErrInternal           = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrConfirmationLost   = errors.New("confirmation timed out")
)

// DomainError represents a domain-specific error with a failure kind,
// a user-presentable message, and the originating service.
type DomainError struct {
	Kind    Kind
	Message string
	Service string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// New creates a domain error of the given kind.
func New(kind Kind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// Wrap creates a domain error of the given kind around an underlying error.
func Wrap(kind Kind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// FromService tags the error with the service it originated in.
func (e *DomainError) FromService(service string) *DomainError {
	e.Service = service
	return e
}

// ValidationError creates a validation error for a named field.
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Message: message,
		Err:     fmt.Errorf("%w: %s", ErrInvalidInput, field),
	}
}

// UpstreamError creates an error carrying an upstream service's own
// message. The message is presented to the user verbatim.
func UpstreamError(service, message string, err error) *DomainError {
	if message == "" {
		message = fmt.Sprintf("%s request failed", service)
	}
	return &DomainError{
		Kind:    KindUpstream,
		Message: message,
		Service: service,
		Err:     err,
	}
}

// SigningError creates an error for a declined or failed signature.
func SigningError(err error) *DomainError {
	return &DomainError{
		Kind:    KindSigning,
		Message: "transaction was not signed",
		Err:     err,
	}
}

// OnChainError creates an error for a transaction that executed and failed.
func OnChainError(signature string, err error) *DomainError {
	return &DomainError{
		Kind:    KindOnChain,
		Message: fmt.Sprintf("transaction %s failed on chain", signature),
		Err:     err,
	}
}

// ConfirmationTimeoutError creates an error for a transaction whose
// outcome is unknown after the polling budget was exhausted.
func ConfirmationTimeoutError(signature string) *DomainError {
	return &DomainError{
		Kind:    KindTimeout,
		Message: "transaction status unknown, check again later",
		Err:     fmt.Errorf("%w: %s", ErrConfirmationLost, signature),
	}
}

// ConflictError creates an error for a duplicate in-flight operation.
func ConflictError(operation, target string) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Message: fmt.Sprintf("a %s for %s is already in progress", operation, target),
		Err:     ErrConflict,
	}
}

// NotFoundError creates a not found error for a named resource.
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     ErrNotFound,
	}
}

// InternalError creates an internal error wrapping an unexpected failure.
func InternalError(message string, err error) *DomainError {
	return &DomainError{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the failure kind, defaulting to KindInternal for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// UserMessage extracts a message safe to show to a user.
func UserMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return "something went wrong"
}

// Error helpers for common patterns

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsUpstream checks if an error is an upstream service error
func IsUpstream(err error) bool {
	return KindOf(err) == KindUpstream
}

// IsSigning checks if an error is a signing error
func IsSigning(err error) bool {
	return KindOf(err) == KindSigning
}

// IsOnChain checks if an error is an on-chain execution error
func IsOnChain(err error) bool {
	return KindOf(err) == KindOnChain
}

// IsConfirmationTimeout checks if an error is a confirmation timeout
func IsConfirmationTimeout(err error) bool {
	return KindOf(err) == KindTimeout || errors.Is(err, ErrConfirmationLost)
}

// IsConflict checks if an error is an in-flight conflict
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict || errors.Is(err, ErrConflict)
}
