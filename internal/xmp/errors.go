package xmp

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a ParseError.
type ErrorCode string

const (
	// ErrCodeSyntax indicates malformed XML.
	ErrCodeSyntax ErrorCode = "SYNTAX"
	// ErrCodeNoRDF indicates the packet has no rdf:RDF element.
	ErrCodeNoRDF ErrorCode = "NO_RDF"
	// ErrCodeDepthExceeded indicates nesting beyond the configured limit.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"
	// ErrCodeTooLarge indicates the input exceeds the configured size limit.
	ErrCodeTooLarge ErrorCode = "TOO_LARGE"
)

var (
	// ErrNoRDF is returned when no rdf:RDF element is found.
	ErrNoRDF = errors.New("xmp: no rdf:RDF element")
	// ErrDepthExceeded is returned when struct/array nesting exceeds the limit.
	ErrDepthExceeded = errors.New("xmp: nesting depth exceeded configured limit")
	// ErrTooLarge is returned when the packet exceeds the size limit.
	ErrTooLarge = errors.New("xmp: packet exceeds configured size limit")
)

// ParseError describes why a packet could not be parsed.
type ParseError struct {
	Code ErrorCode
	// Line is the 1-based input line, 0 when unknown.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("xmp parse error (%s) at line %d: %v", e.Code, e.Line, e.Err)
	}
	return fmt.Sprintf("xmp parse error (%s): %v", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
