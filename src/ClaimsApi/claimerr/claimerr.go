// Package claimerr classifies every failure the claim endpoints can surface.
// Chain and storage errors are wrapped into one of these kinds at the
// boundary; raw causes stay in server logs.
package claimerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// Validation: malformed input, terminal, never retried.
	Validation Kind = iota
	// RateLimited: caller must back off for the window.
	RateLimited
	// NotEligible: evaluation said no, terminal for the day.
	NotEligible
	// NotFound: receipt not on chain yet, retryable by the client.
	NotFound
	// Upstream: signer misconfigured or RPC/storage down, retryable.
	Upstream
	// OnChainFailure: mined but reverted, terminal.
	OnChainFailure
	// VerificationMismatch: wrong contract or wrong function, terminal.
	// Logged distinctly since it usually means a tampered or replayed hash.
	VerificationMismatch
)

type Error struct {
	Kind Kind
	Msg  string // safe for clients
	Err  error  // server-side cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors are
// treated as upstream failures so nothing leaks a raw cause to a client.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Upstream
}

// Message returns the client-safe message for an error chain.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Msg
	}
	return "internal error"
}

// Status maps a kind to the HTTP status the handlers respond with.
func Status(kind Kind) int {
	switch kind {
	case Validation, OnChainFailure, VerificationMismatch:
		return http.StatusBadRequest
	case NotEligible:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
