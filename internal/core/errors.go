package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can branch on it with errors.As
// instead of string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfig
	KindNotFound
	KindProviderTransient
	KindProviderTerminal
	KindParse
	KindSyntaxInvalid
	KindIO
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not_found"
	case KindProviderTransient:
		return "provider_transient"
	case KindProviderTerminal:
		return "provider_terminal"
	case KindParse:
		return "parse"
	case KindSyntaxInvalid:
		return "syntax_invalid"
	case KindIO:
		return "io"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so the caller can decide
// whether to retry, rotate a credential, or surface the failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error of the given kind, annotated with the operation name.
func Wrap(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown if err does not
// wrap a *core.Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var ErrNotFound = &Error{Kind: KindNotFound, Err: errors.New("not found")}
