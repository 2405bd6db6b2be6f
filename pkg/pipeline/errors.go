package pipeline

import (
	"errors"
	"fmt"
)

// The queue's retry policy inspects failures structurally (anything with a
// Permanent() bool method); only ValidationError opts out of redelivery.

// ValidationError marks a job that can never succeed; the queue buries it
// immediately instead of retrying.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid job: " + e.Reason }

// Permanent tells the queue's retry policy not to redeliver.
func (e *ValidationError) Permanent() bool { return true }

// TransientError wraps object-store, metadata-store, and temp-filesystem
// failures. Retrying has a fair chance of succeeding.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// DerivationError wraps decode, probe, transcode, and extraction failures.
// The pipeline cannot tell a corrupt input from a transient tool failure, so
// these stay subject to the queue's retry policy; the asset is marked failed
// either way.
type DerivationError struct {
	Stage string
	Err   error
}

func (e *DerivationError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *DerivationError) Unwrap() error { return e.Err }

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func derivation(stage string, err error) error {
	return &DerivationError{Stage: stage, Err: err}
}

// Retryable reports whether the queue should redeliver a job that failed
// with err.
func Retryable(err error) bool {
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return !p.Permanent()
	}
	return true
}
