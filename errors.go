package main

import (
	"errors"
	"fmt"
)

// Configuration errors are fatal at startup.
var (
	ErrNoDatabases        = errors.New("no databases configured")
	ErrAlreadyRegistered  = errors.New("registry already populated")
	ErrDuplicateID        = errors.New("duplicate database id")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrInvalidParameters  = errors.New("invalid connection parameters")
)

// Lookup errors are recoverable and surface as tool errors.
var (
	ErrNotFound      = errors.New("database not found")
	ErrTableNotFound = errors.New("table not found")
)

// Dispatch errors.
var (
	ErrUnknownDatabase  = errors.New("unknown database")
	ErrConnectionFailed = errors.New("connection failed")
	ErrExecutionFailed  = errors.New("execution failed")
)

// ConfigError describes why a set of database configurations was rejected.
type ConfigError struct {
	Kind   error
	Index  int // position in the config list, -1 when not tied to one entry
	ID     string
	Detail string
}

func (e *ConfigError) Error() string {
	msg := e.Kind.Error()
	if e.Index >= 0 {
		msg = fmt.Sprintf("database #%d: %s", e.Index, msg)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Kind }

// LookupError is returned when a database or table cannot be resolved.
type LookupError struct {
	Kind       error
	DatabaseID string
	Table      string
}

func (e *LookupError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %q in database %q", e.Kind, e.Table, e.DatabaseID)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.DatabaseID)
}

func (e *LookupError) Unwrap() error { return e.Kind }

// DispatchError wraps a failure to run a statement against an entry. Cause
// holds the backend error untouched.
type DispatchError struct {
	Kind       error
	DatabaseID string
	Cause      error
}

func (e *DispatchError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %q", e.Kind, e.DatabaseID)
	}
	return fmt.Sprintf("%s on %q: %v", e.Kind, e.DatabaseID, e.Cause)
}

func (e *DispatchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Message returns the backend's error text for execution failures.
func (e *DispatchError) Message() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Cause.Error()
}

// ConnectError is returned by an entry when its backend connection could not
// be opened.
type ConnectError struct {
	DatabaseID string
	Cause      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %q: %v", e.DatabaseID, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }
