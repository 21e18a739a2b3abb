// Package registry maps image container formats to their segment locators
// and framers.
package registry

import (
	"context"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/types"
)

// Layout is the segment map of one container.
type Layout struct {
	// Segments are the metadata-carrying units, sorted by offset and
	// non-overlapping.
	Segments []types.Location

	// InsertAt is the offset where newly added segments are written.
	InsertAt int64

	// Warnings reports container irregularities that did not stop the walk
	// (bad chunk CRCs, trailing bytes).
	Warnings []types.Warning
}

// Check reports a layout whose segments leave the file, run backwards or
// overlap. Such a layout cannot be reconstructed safely.
func (l *Layout) Check(size int64) error {
	for i, loc := range l.Segments {
		if loc.Offset < 0 || loc.End() > size {
			return &types.CorruptedFileError{
				Reason: fmt.Sprintf("%s segment [%d,+%d) exceeds file size %d", loc.Marker, loc.Offset, loc.Length, size),
				Offset: loc.Offset,
			}
		}
		if i == 0 {
			continue
		}
		prev := l.Segments[i-1]
		if loc.Offset < prev.Offset || loc.Overlaps(prev) {
			return &types.CorruptedFileError{
				Reason: fmt.Sprintf("%s segment overlaps %s segment at offset %d", loc.Marker, prev.Marker, prev.Offset),
				Offset: loc.Offset,
			}
		}
	}
	return nil
}

// Locator finds the metadata segments of a container.
type Locator interface {
	// Locate walks the container structure. It checks ctx between units.
	Locate(ctx context.Context, sr *binary.SafeReader) (*Layout, error)
}

// Framer writes metadata payloads back into container units.
type Framer interface {
	// Frame wraps payload in a complete container unit of the kind loc
	// describes. original holds the unit's previous bytes, or nil when the
	// segment is new; framers that share a unit between several payloads
	// (JPEG APP13 resource blocks) splice payload into it.
	//
	// Text payloads are UTF-8; the framer picks the container encoding.
	Frame(loc types.Location, original, payload []byte) ([]byte, error)

	// Finalize fixes container-level fields that depend on the final
	// layout (RIFF size, VP8X flags) after every unit has been written.
	Finalize(out []byte) ([]byte, error)
}

// locators maps formats to their locators.
var locators = make(map[types.Format]Locator)

// framers maps formats to their framers.
var framers = make(map[types.Format]Framer)

// Register registers a locator for a format.
// This is called by container packages during initialization (init functions).
func Register(format types.Format, l Locator) {
	locators[format] = l
}

// Get returns the locator for a given format.
// Returns nil if no locator is registered for the format.
func Get(format types.Format) Locator {
	return locators[format]
}

// RegisterFramer registers a framer for a format.
// Formats without a framer are read-only.
func RegisterFramer(format types.Format, f Framer) {
	framers[format] = f
}

// GetFramer returns the framer for a given format, or nil.
func GetFramer(format types.Format) Framer {
	return framers[format]
}
