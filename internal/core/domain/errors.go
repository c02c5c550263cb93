package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure by how the pipeline reacts to it.
type ErrorKind int

const (
	// KindUnknown is reported for nil errors.
	KindUnknown ErrorKind = iota

	// KindInput covers malformed documents, empty queries and bad names.
	// Recoverable by correcting the input; never retried.
	KindInput

	// KindUpstream covers embedding, store and model call failures,
	// including timeouts and dimension mismatches.
	KindUpstream

	// KindCapacity covers records that exceed a size ceiling.
	KindCapacity

	// KindFatal aborts the run: unreadable input directory, unusable credentials.
	KindFatal
)

// String returns the kind name used in log fields and messages.
func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindUpstream:
		return "upstream"
	case KindCapacity:
		return "capacity"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Kind sentinels. Every *Error unwraps to exactly one of these.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates an external collaborator failed.
	ErrUpstream = errors.New("upstream failure")

	// ErrCapacity indicates a size ceiling was exceeded.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrFatal indicates the run cannot continue.
	ErrFatal = errors.New("fatal")
)

// Specific causes.
var (
	// ErrEmptyQuery indicates a query that is empty after trimming.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrMalformedDocument indicates a document that cannot be decoded or normalised.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidVector indicates a vector containing NaN or infinite components.
	ErrInvalidVector = errors.New("embedding contains non-finite values")

	// ErrIndexNotFound indicates the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists indicates a concurrent creator won the race for an index.
	ErrIndexExists = errors.New("index already exists")

	// ErrMetadataTooLarge indicates a record whose serialised metadata exceeds the ceiling.
	ErrMetadataTooLarge = errors.New("metadata exceeds size ceiling")

	// ErrBatchTooLarge indicates an upsert call carrying more records than allowed.
	ErrBatchTooLarge = errors.New("upsert batch too large")

	// ErrTemperatureRange indicates a temperature outside [0.0, 1.0].
	ErrTemperatureRange = errors.New("temperature must be between 0.0 and 1.0")

	// ErrNoIndexes indicates there is nothing to query.
	ErrNoIndexes = errors.New("no indexes available")

	// ErrClosed indicates use of a store after Close.
	ErrClosed = errors.New("store closed")
)

// Error is a classified failure naming the operation and the subject
// (source, chunk, index or query) it concerns.
type Error struct {
	Kind    ErrorKind
	Op      string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Subject != "" {
		fmt.Fprintf(&b, " %q", e.Subject)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{kindSentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindInput:
		return ErrInvalidInput
	case KindCapacity:
		return ErrCapacity
	case KindFatal:
		return ErrFatal
	default:
		return ErrUpstream
	}
}

// InputError builds a KindInput error.
func InputError(op, subject string, err error) error {
	return &Error{Kind: KindInput, Op: op, Subject: subject, Err: err}
}

// UpstreamError builds a KindUpstream error.
func UpstreamError(op, subject string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Subject: subject, Err: err}
}

// CapacityError builds a KindCapacity error.
func CapacityError(op, subject string, err error) error {
	return &Error{Kind: KindCapacity, Op: op, Subject: subject, Err: err}
}

// FatalError builds a KindFatal error.
func FatalError(op, subject string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Subject: subject, Err: err}
}

// KindOf classifies err. Unclassified non-nil errors are upstream failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrFatal):
		return KindFatal
	case errors.Is(err, ErrInvalidInput):
		return KindInput
	case errors.Is(err, ErrCapacity):
		return KindCapacity
	default:
		return KindUpstream
	}
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}
