package imagemeta

import (
	"github.com/simonhull/imagemeta/internal/preserve"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
	"github.com/simonhull/imagemeta/internal/version"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// OutOfBoundsError is an alias to types.OutOfBoundsError.
type OutOfBoundsError = types.OutOfBoundsError

// UnsupportedFormatError is an alias to types.UnsupportedFormatError.
type UnsupportedFormatError = types.UnsupportedFormatError

// CorruptedFileError is an alias to types.CorruptedFileError.
type CorruptedFileError = types.CorruptedFileError

// UnsupportedWriteError is an alias to types.UnsupportedWriteError.
type UnsupportedWriteError = types.UnsupportedWriteError

// MalformedHeaderError is an alias to types.MalformedHeaderError.
type MalformedHeaderError = types.MalformedHeaderError

// CircularReferenceError is an alias to types.CircularReferenceError.
type CircularReferenceError = types.CircularReferenceError

// SegmentError is an alias to preserve.SegmentError.
type SegmentError = preserve.SegmentError

// XMPParseError is an alias to xmp.ParseError.
type XMPParseError = xmp.ParseError

// ValidationError is an alias to schema.ValidationError.
type ValidationError = schema.ValidationError

// MergeConflictError is an alias to version.MergeConflictError.
type MergeConflictError = version.MergeConflictError

// Warning is an alias to types.Warning.
type Warning = types.Warning

// Sentinel errors for errors.Is.
var (
	ErrMalformedHeader   = types.ErrMalformedHeader
	ErrCircularReference = types.ErrCircularReference
	ErrVersionNotFound   = version.ErrNotFound
	ErrVersionCorrupt    = version.ErrCorrupt
)
