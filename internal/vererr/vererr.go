// Package vererr defines the error taxonomy of the versioning engine.
//
// Every failure surfaced by the engine carries one of five kinds:
// NotFound, BadRequest, IO, Corrupted, or Conflict. The kind drives both
// caller behavior and the process exit code when the engine is driven
// from the CLI.
package vererr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind int

const (
	// KindOther is any failure not covered by a more specific kind.
	KindOther Kind = iota
	// KindNotFound means the target path, version, or blob is absent.
	KindNotFound
	// KindBadRequest means the input failed validation (empty or overlong
	// message, non-positive quota, malformed arguments).
	KindBadRequest
	// KindIO means a read, write, rename, or permission failure from the OS.
	KindIO
	// KindCorrupted means the catalog is unparsable, a blob failed gzip
	// decode, or a blob's digest does not match its name.
	KindCorrupted
	// KindConflict means a commit found the content unchanged. It is
	// informational, not fatal.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBadRequest:
		return "bad request"
	case KindIO:
		return "io error"
	case KindCorrupted:
		return "corrupted"
	case KindConflict:
		return "conflict"
	default:
		return "error"
	}
}

// Error is the engine's error type. Op names the failing operation
// ("commit", "blobstore.put", ...) and Path the file it was acting on.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Op, e.Path, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. err may be nil when the kind alone says enough.
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// NotFound reports an absent path, version, or blob.
func NotFound(op, path string, err error) *Error {
	return E(KindNotFound, op, path, err)
}

// BadRequest reports invalid caller input.
func BadRequest(op, path string, err error) *Error {
	return E(KindBadRequest, op, path, err)
}

// IO reports an OS-level read/write/rename failure.
func IO(op, path string, err error) *Error {
	return E(KindIO, op, path, err)
}

// Corrupted reports unparsable or digest-mismatched stored data.
func Corrupted(op, path string, err error) *Error {
	return E(KindCorrupted, op, path, err)
}

// KindOf extracts the kind from err, or KindOther if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ExitCode maps an error to the CLI exit code contract:
// 0 success, 2 validation, 3 not found, 4 storage/corruption, 1 other.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindBadRequest:
		return 2
	case KindNotFound:
		return 3
	case KindCorrupted:
		return 4
	case KindConflict:
		// Informational only; an unchanged commit is not a failure.
		return 0
	default:
		return 1
	}
}
