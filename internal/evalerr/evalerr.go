// Package evalerr classifies the failures an evaluation run can produce.
// Per-catchment kinds are collected into the run's error list; fatal kinds
// abort the run.
package evalerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an evaluation error for handling purposes.
type Kind int

const (
	// KindDiscovery: a required glob matched no files.
	KindDiscovery Kind = iota + 1
	// KindSchema: a required column is missing from a table.
	KindSchema
	// KindParse: an unparseable timestamp or value, or no aligned rows left.
	KindParse
	// KindDegenerateStatistic: a metric denominator is zero.
	KindDegenerateStatistic
	// KindTimeout: a catchment exceeded its processing deadline.
	KindTimeout
	// KindSerialization: the artifact could not be built or encoded.
	KindSerialization
	// KindOutputWrite: an output file could not be written.
	KindOutputWrite
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindDiscovery:
		return "discovery"
	case KindSchema:
		return "schema"
	case KindParse:
		return "parse"
	case KindDegenerateStatistic:
		return "degenerate_statistic"
	case KindTimeout:
		return "timeout"
	case KindSerialization:
		return "serialization"
	case KindOutputWrite:
		return "output_write"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind abort the whole run.
func (k Kind) Fatal() bool {
	switch k {
	case KindDiscovery, KindSerialization, KindOutputWrite:
		return true
	}
	return false
}

// ErrNoAlignedRows is wrapped when a catchment's series is empty after the
// join and missing-value filtering.
var ErrNoAlignedRows = errors.New("no aligned rows")

// Error is a classified evaluation error.
type Error struct {
	Kind      Kind
	Catchment string
	Path      string
	Op        string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Catchment != "" {
		fmt.Fprintf(&b, " catchment=%s", e.Catchment)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " path=%s", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithCatchment returns a copy of e attributed to a catchment.
func (e *Error) WithCatchment(id string) *Error {
	c := *e
	c.Catchment = id
	return &c
}

// WithPath returns a copy of e attributed to an input or output file.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// KindOf returns the kind of the first classified error in err's chain,
// or 0 when err is not classified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}
