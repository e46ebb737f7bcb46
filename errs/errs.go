// Package errs collects the sentinel errors the store and codec return, so
// callers can use errors.Is/errors.As instead of matching on strings.
//
// Call sites wrap a sentinel with context using fmt.Errorf("%w: ...", ...),
// matching the teacher's own error-wrapping register.
package errs

import (
	"errors"
	"fmt"
)

// Codec errors (spec.md §7.3-§7.5).
var (
	// ErrEncodeOverflow is returned when encoding a value would exceed the
	// hard 256 MiB cap on a single encoded value.
	ErrEncodeOverflow = errors.New("encode: value exceeds maximum encoded size")

	// ErrUnsupportedType is returned when a value presented to the codec
	// has no built-in case and no registered handler.
	ErrUnsupportedType = errors.New("encode: unsupported value type")

	// ErrUnknownTag is returned when a decoder reads a tag byte that is
	// neither built-in nor registered.
	ErrUnknownTag = errors.New("decode: unknown tag")

	// ErrMaxDepthExceeded is returned when a value's nesting exceeds the
	// codec's configured recursion-depth guard (spec.md §9).
	ErrMaxDepthExceeded = errors.New("encode/decode: maximum nesting depth exceeded")

	// ErrTruncated is returned when a decoder runs out of input bytes
	// before finishing a value.
	ErrTruncated = errors.New("decode: truncated input")
)

// Registry errors (spec.md §4.C3).
var (
	ErrDuplicateTag   = errors.New("registry: duplicate handler tag")
	ErrDuplicateClass = errors.New("registry: duplicate handler class")
	ErrReservedTag    = errors.New("registry: tag is not in the user-extension range")
)

// Store errors (spec.md §7.6-§7.9).
var (
	// ErrCrossAPIMisuse is returned when a wrapped read finds a record
	// without a meta field, i.e. one written through the raw API.
	ErrCrossAPIMisuse = errors.New("store: record was not written through the wrapped API")

	// ErrUnsupportedBinaryInput is returned when bassoc receives a value
	// that is not bytes, a string, an io.Reader, or a filesystem path.
	ErrUnsupportedBinaryInput = errors.New("store: unsupported input for binary association")

	// ErrLibraryLoad is returned when the native liblmdb shared library
	// could not be resolved.
	ErrLibraryLoad = errors.New("store: could not resolve liblmdb")

	// ErrStoreExists is returned by Create when the target directory
	// already exists.
	ErrStoreExists = errors.New("store: directory already exists")

	// ErrStoreMissing is returned by Connect when the target directory
	// does not exist.
	ErrStoreMissing = errors.New("store: directory does not exist")

	// ErrClosed is returned by any operation performed on a store after
	// Release.
	ErrClosed = errors.New("store: closed")

	// ErrPathNotFound is returned by assoc-in/update-in when an
	// intermediate path segment indexes into a sequence position that
	// does not exist, or into a scalar as though it were a collection.
	ErrPathNotFound = errors.New("store: path segment not found")
)

// CrossAPIError carries the extra context spec.md §7.6 asks for: the
// offending key and the field names actually found on disk.
type CrossAPIError struct {
	Key    any
	Fields []string
}

func (e *CrossAPIError) Error() string {
	return fmt.Sprintf("store: key %v was not written through the wrapped API (found fields %v)", e.Key, e.Fields)
}

func (e *CrossAPIError) Unwrap() error { return ErrCrossAPIMisuse }

// LMDBError carries the numeric LMDB return code and the call site that
// produced it (spec.md §7.2). MDB_NOTFOUND is never wrapped in one of
// these: the store translates it to a miss before it reaches callers.
type LMDBError struct {
	Op   string
	Code int
	Msg  string
}

func (e *LMDBError) Error() string {
	return fmt.Sprintf("lmdb: %s: %s (%d)", e.Op, e.Msg, e.Code)
}

// UnsupportedTypeError carries the runtime type that had no codec case or
// registered handler.
type UnsupportedTypeError struct {
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: %T", ErrUnsupportedType, e.Value)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// UnknownTagError carries the tag byte a decoder could not resolve.
type UnknownTagError struct {
	Tag byte
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s: 0x%02x", ErrUnknownTag, e.Tag)
}

func (e *UnknownTagError) Unwrap() error { return ErrUnknownTag }
