package types

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Warning represents a non-fatal issue encountered during parsing.
//
// Warnings indicate problems that don't prevent metadata extraction but
// may indicate corrupted or unusual data. Examples include:
//   - An IFD entry whose value lies outside the EXIF block
//   - A maker note that could not be decoded
//   - A duplicate non-repeatable IPTC dataset
//   - Garbage bytes between IPTC datasets
type Warning struct {
	// Stage where the warning occurred
	Stage string // "ifd", "makernote", "dataset", "charset", "segment"

	// Warning message
	Message string

	// Offset where the issue occurred (0 if not applicable)
	Offset int64
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}

// Error lets a Warning be aggregated and surfaced as an error.
func (w Warning) Error() string {
	return w.String()
}

// Warnings is an ordered list of non-fatal issues.
type Warnings []Warning

// Err folds the warnings into one error, or nil when there are none.
func (ws Warnings) Err() error {
	var result *multierror.Error
	for _, w := range ws {
		result = multierror.Append(result, w)
	}
	return result.ErrorOrNil()
}
