package preserve

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Segment is one metadata unit of a container. Raw always holds the unit's
// original bytes; at most one of the parsed fields is set, and none when Err
// is non-nil or the segment type is not parsed.
type Segment struct {
	Index    int
	Location types.Location

	// Raw is the whole container unit including its framing.
	Raw []byte
	// Payload is the parser input, inflated when the unit is compressed.
	Payload []byte

	Exif *exif.Document
	IPTC *iptc.Document
	XMP  *xmp.Document
	Text *types.TextEntry

	Err error
}

// Type returns the segment type.
func (s *Segment) Type() types.SegmentType {
	return s.Location.Type
}

// Parsed reports whether the segment carries a parsed document.
func (s *Segment) Parsed() bool {
	return s.Exif != nil || s.IPTC != nil || s.XMP != nil || s.Text != nil
}

// SegmentError reports a segment whose payload could not be parsed. The
// segment is still preserved raw.
type SegmentError struct {
	Index  int
	Type   types.SegmentType
	Offset int64
	Err    error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%s at offset %d): %v", e.Index, e.Type, e.Offset, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// PreservedMetadata is the result of Extract.
type PreservedMetadata struct {
	Format types.Format
	Size   int64

	// Segments are sorted by offset and do not overlap.
	Segments []*Segment

	// Errors lists the segments that failed to parse, in segment order.
	Errors []*SegmentError

	// Warnings collects container warnings followed by the warnings of each
	// parsed segment.
	Warnings []types.Warning

	// InsertAt is where Reconstruct writes inserted segments.
	InsertAt int64
}

// Err folds the segment errors into one error, or nil when every segment
// parsed.
func (pm *PreservedMetadata) Err() error {
	var result *multierror.Error
	for _, e := range pm.Errors {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// First returns the first segment of type t that parsed, or nil.
func (pm *PreservedMetadata) First(t types.SegmentType) *Segment {
	for _, s := range pm.Segments {
		if s.Type() == t && s.Parsed() {
			return s
		}
	}
	return nil
}

// Exif returns the first parsed EXIF document, or nil.
func (pm *PreservedMetadata) Exif() *exif.Document {
	if s := pm.First(types.SegmentExif); s != nil {
		return s.Exif
	}
	return nil
}

// IPTC returns the first parsed IPTC document, or nil.
func (pm *PreservedMetadata) IPTC() *iptc.Document {
	if s := pm.First(types.SegmentIPTC); s != nil {
		return s.IPTC
	}
	return nil
}

// XMP returns the first parsed XMP document, or nil.
func (pm *PreservedMetadata) XMP() *xmp.Document {
	if s := pm.First(types.SegmentXMP); s != nil {
		return s.XMP
	}
	return nil
}

// Texts returns every parsed text entry in segment order.
func (pm *PreservedMetadata) Texts() []types.TextEntry {
	var out []types.TextEntry
	for _, s := range pm.Segments {
		if s.Text != nil {
			out = append(out, *s.Text)
		}
	}
	return out
}

// Extract locates and parses the metadata segments of a container.
//
// The error is non-nil only when the container cannot be read at all
// (unknown format, broken structure, cancellation). Segment parse failures
// are reported in PreservedMetadata.Errors.
func (m *Manager) Extract(ctx context.Context, r io.ReaderAt, size int64) (*PreservedMetadata, error) {
	return m.ExtractNamed(ctx, r, size, "")
}

// ExtractNamed is Extract with a name used in error messages.
func (m *Manager) ExtractNamed(ctx context.Context, r io.ReaderAt, size int64, name string) (*PreservedMetadata, error) {
	start := time.Now()
	format, err := types.DetectFormat(r, size, name)
	if err != nil {
		m.metrics.RecordExtraction(types.FormatUnknown.String(), err)
		return nil, err
	}
	pm, err := m.extract(ctx, r, size, name, format)
	m.metrics.RecordExtraction(format.String(), err)
	if err != nil {
		return nil, err
	}
	m.log.LogExtract(format.String(), len(pm.Segments), len(pm.Errors), time.Since(start))
	return pm, nil
}

func (m *Manager) extract(ctx context.Context, r io.ReaderAt, size int64, name string, format types.Format) (*PreservedMetadata, error) {
	locator := registry.Get(format)
	if locator == nil {
		return nil, &types.UnsupportedFormatError{
			Path:   name,
			Reason: fmt.Sprintf("no locator registered for %s", format),
		}
	}

	sr := binary.NewSafeReader(r, size, name)
	layout, err := locator.Locate(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("locate %s segments: %w", format, err)
	}
	if err := layout.Check(size); err != nil {
		return nil, fmt.Errorf("locate %s segments: %w", format, err)
	}

	pm := &PreservedMetadata{
		Format:   format,
		Size:     size,
		Segments: make([]*Segment, len(layout.Segments)),
		Warnings: append([]types.Warning(nil), layout.Warnings...),
		InsertAt: layout.InsertAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, loc := range layout.Segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seg, err := m.segment(gctx, sr, i, loc)
			if err != nil {
				return err
			}
			pm.Segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, seg := range pm.Segments {
		if seg.Err != nil {
			pm.Errors = append(pm.Errors, &SegmentError{
				Index:  seg.Index,
				Type:   seg.Type(),
				Offset: seg.Location.Offset,
				Err:    seg.Err,
			})
		}
		pm.Warnings = append(pm.Warnings, seg.warnings()...)
	}
	return pm, nil
}

// segment reads and parses one unit. Only read failures and cancellation
// are returned; parse failures land in Segment.Err.
func (m *Manager) segment(ctx context.Context, sr *binary.SafeReader, index int, loc types.Location) (*Segment, error) {
	start := time.Now()
	raw, err := sr.Slice(loc.Offset, loc.Length, loc.Marker+" segment")
	if err != nil {
		return nil, err
	}
	seg := &Segment{Index: index, Location: loc, Raw: raw}

	rel := loc.PayloadOffset - loc.Offset
	if rel < 0 || rel+loc.PayloadLength > int64(len(raw)) {
		seg.Err = fmt.Errorf("payload [%d,+%d) lies outside the segment", loc.PayloadOffset, loc.PayloadLength)
	} else {
		seg.Payload = raw[rel : rel+loc.PayloadLength]
		if loc.Compressed {
			seg.Payload, seg.Err = inflate(seg.Payload, m.maxInflate)
		}
	}
	if seg.Err == nil {
		seg.Err = m.parse(ctx, seg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := "parsed"
	switch {
	case seg.Err != nil:
		outcome = "failed"
	case !seg.Parsed():
		outcome = "raw"
	}
	m.log.LogSegment(index, loc.Type.String(), loc.Offset, time.Since(start), seg.Err)
	m.metrics.RecordSegment(loc.Type.String(), outcome, time.Since(start))
	return seg, nil
}

func (m *Manager) parse(ctx context.Context, seg *Segment) error {
	switch seg.Type() {
	case types.SegmentExif:
		doc, err := m.exif.Parse(ctx, seg.Payload)
		if err != nil {
			return err
		}
		seg.Exif = doc
	case types.SegmentIPTC:
		opts := append([]iptc.Option{iptc.WithRegistry(m.registry)}, m.iptcOpts...)
		seg.IPTC = iptc.Parse(seg.Payload, opts...)
	case types.SegmentXMP:
		opts := append([]xmp.Option{xmp.WithResolver(m.registry)}, m.xmpOpts...)
		doc, err := xmp.Parse(seg.Payload, opts...)
		if err != nil {
			return err
		}
		seg.XMP = doc
	case types.SegmentText:
		seg.Text = &types.TextEntry{
			Keyword:  seg.Location.Keyword,
			Language: seg.Location.Language,
			Value:    decodeText(seg.Location.Marker, seg.Payload),
		}
	}
	return nil
}

// decodeText reads tEXt and zTXt as Latin-1 and everything else as UTF-8,
// falling back to Latin-1 for invalid UTF-8 (JPEG comments carry no
// declared encoding).
func decodeText(marker string, b []byte) string {
	if marker != "tEXt" && marker != "zTXt" && utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func inflate(b []byte, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("inflate: payload exceeds %d bytes", limit)
	}
	return out, nil
}

func (s *Segment) warnings() []types.Warning {
	switch {
	case s.Exif != nil:
		return s.Exif.Warnings
	case s.IPTC != nil:
		return s.IPTC.Warnings
	}
	return nil
}
