package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in compliance-protocol terms, not
// HTTP terms. Callers must be able to distinguish "proved non-compliant"
// from "could not complete verification", so no code is ever collapsed into
// a generic compliant=false result.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"

	// Compliance protocol error codes.
	CodeScreeningFailed       Code = "screening_failed"        // external screening gate rejected the identity
	CodeProofGeneration       Code = "proof_generation_failed" // witness computation or proving key failure
	CodeStructuralProof       Code = "structural_proof"        // malformed proof or public-signal shape
	CodeVerificationFailed    Code = "verification_failed"     // cryptographic verification returned false
	CodeReplayedProof         Code = "replayed_proof"          // proof fingerprint already consumed
	CodeNotCompliant          Code = "not_compliant"           // sender lacks a compliant record
	CodeRecipientNotCompliant Code = "recipient_not_compliant" // recipient lacks a compliant, current record
	CodeExpiredCredential     Code = "expired_credential"      // compliance credential past its expiry
	CodeInternalConsistency   Code = "internal_consistency"    // self-produced proof failed self-verification
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
