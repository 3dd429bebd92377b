// Package apperr implements the error taxonomy from the orchestration
// core's error handling design: errors are classified by kind (Gate,
// Retrieval, Rerank, Generation, Safety, Cache, Audit), not by Go type,
// so callers can branch on "is this transient" without a chain of
// type assertions.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by which stage produced it and how the
// orchestrator should react.
type Kind string

const (
	KindGate       Kind = "gate"
	KindRetrieval  Kind = "retrieval"
	KindRerank     Kind = "rerank"
	KindGeneration Kind = "generation"
	KindSafety     Kind = "safety"
	KindCache      Kind = "cache"
	KindAudit      Kind = "audit"
)

// Error wraps an underlying error with a Kind and a Transient flag.
// Transient errors are eligible for bounded retry; permanent errors
// surface as "service unavailable" per spec.
type Error struct {
	Kind      Kind
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind, marked permanent.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Transient wraps err with the given kind, marked transient (retryable).
func Transient(kind Kind, err error) *Error {
	return &Error{Kind: kind, Transient: true, Err: err}
}

// IsKind reports whether err (or any error it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// IsTransient reports whether err is an *Error marked transient.
func IsTransient(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Transient
	}
	return false
}
