package preserve

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Content is the new value of a segment. Set exactly one field.
type Content struct {
	Exif *exif.Document
	IPTC *iptc.Document
	XMP  *xmp.Document
	Text *types.TextEntry
	// Payload is written as-is, for callers that encode themselves.
	Payload []byte
}

func (c Content) fields() int {
	n := 0
	for _, set := range []bool{c.Exif != nil, c.IPTC != nil, c.XMP != nil, c.Text != nil, c.Payload != nil} {
		if set {
			n++
		}
	}
	return n
}

type insertion struct {
	loc     types.Location
	content Content
}

// Modifications lists the changes Reconstruct applies, addressed by segment
// index. The zero value changes nothing.
type Modifications struct {
	replace map[int]Content
	remove  map[int]bool
	inserts []insertion
}

// NewModifications returns an empty change set.
func NewModifications() *Modifications {
	return &Modifications{}
}

// Replace sets new content for segment index. The segment keeps its
// container unit kind.
func (m *Modifications) Replace(index int, c Content) *Modifications {
	if m.replace == nil {
		m.replace = make(map[int]Content)
	}
	m.replace[index] = c
	delete(m.remove, index)
	return m
}

// Remove drops segment index from the output.
func (m *Modifications) Remove(index int) *Modifications {
	if m.remove == nil {
		m.remove = make(map[int]bool)
	}
	m.remove[index] = true
	delete(m.replace, index)
	return m
}

// Insert adds a new segment of type t at the container's insertion point.
// Insertions are written in call order.
func (m *Modifications) Insert(t types.SegmentType, c Content) *Modifications {
	loc := types.Location{Type: t}
	if c.Text != nil {
		loc.Keyword, loc.Language = c.Text.Keyword, c.Text.Language
	}
	m.inserts = append(m.inserts, insertion{loc: loc, content: c})
	return m
}

// InsertAt is Insert with a caller-built location, for choosing the
// container unit kind (for example a PNG "zTXt" text chunk).
func (m *Modifications) InsertAt(loc types.Location, c Content) *Modifications {
	m.inserts = append(m.inserts, insertion{loc: loc, content: c})
	return m
}

// Empty reports whether the change set does nothing.
func (m *Modifications) Empty() bool {
	return m == nil || len(m.replace) == 0 && len(m.remove) == 0 && len(m.inserts) == 0
}

func (m *Modifications) check(n int) error {
	for _, i := range slices.Sorted(maps.Keys(m.replace)) {
		if i < 0 || i >= n {
			return fmt.Errorf("replace: segment %d out of range [0,%d)", i, n)
		}
		if m.replace[i].fields() != 1 {
			return fmt.Errorf("replace: segment %d: content must set exactly one field", i)
		}
	}
	for _, i := range slices.Sorted(maps.Keys(m.remove)) {
		if i < 0 || i >= n {
			return fmt.Errorf("remove: segment %d out of range [0,%d)", i, n)
		}
	}
	for k, ins := range m.inserts {
		if ins.content.fields() != 1 {
			return fmt.Errorf("insert %d: content must set exactly one field", k)
		}
	}
	return nil
}

// Reconstruct writes the container with mods applied. original must be the
// source pm was extracted from.
//
// Bytes outside segments (image data, structural units) are copied from
// original. Unmodified segments are copied from their raw bytes unless the
// manager normalizes, in which case parsed Exif, IPTC and XMP segments are
// re-encoded. The container framer then fixes container-level fields.
func (m *Manager) Reconstruct(ctx context.Context, original io.ReaderAt, size int64, pm *PreservedMetadata, mods *Modifications) ([]byte, error) {
	out, err := m.reconstruct(ctx, original, size, pm, mods)
	m.metrics.RecordReconstruction(pm.Format.String(), len(out), err)
	if err != nil {
		m.log.Warn().Err(err).Str("format", pm.Format.String()).Msg("reconstruct failed")
		return nil, err
	}
	return out, nil
}

func (m *Manager) reconstruct(ctx context.Context, original io.ReaderAt, size int64, pm *PreservedMetadata, mods *Modifications) ([]byte, error) {
	start := time.Now()
	if size != pm.Size {
		return nil, fmt.Errorf("reconstruct: source is %d bytes, metadata was extracted from %d", size, pm.Size)
	}
	if mods == nil {
		mods = NewModifications()
	}
	if err := mods.check(len(pm.Segments)); err != nil {
		return nil, err
	}

	framer := registry.GetFramer(pm.Format)
	if framer == nil {
		if !mods.Empty() || m.normalize {
			return nil, &types.UnsupportedWriteError{
				Format: pm.Format,
				Reason: "metadata cannot be written back into this container",
			}
		}
	}

	w := newRebuilder(original, size)
	inserted := len(mods.inserts) == 0
	insertAt := pm.InsertAt

	writeInserts := func() error {
		w.copyTo(max(insertAt, w.pos))
		for k, ins := range mods.inserts {
			payload, err := m.encode(ins.content)
			if err != nil {
				return fmt.Errorf("insert %d: %w", k, err)
			}
			unit, err := framer.Frame(ins.loc, nil, payload)
			if err != nil {
				return fmt.Errorf("insert %d: %w", k, err)
			}
			w.write(unit)
		}
		inserted = true
		return nil
	}

	for _, seg := range pm.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !inserted && insertAt <= seg.Location.Offset {
			if err := writeInserts(); err != nil {
				return nil, err
			}
		}
		w.copyTo(seg.Location.Offset)

		content, replaced := mods.replace[seg.Index]
		switch {
		case mods.remove[seg.Index]:
		case replaced:
			if err := m.frame(w, framer, seg, content); err != nil {
				return nil, err
			}
		case m.normalize && seg.Err == nil && normalizable(seg):
			if err := m.frame(w, framer, seg, contentOf(seg)); err != nil {
				return nil, err
			}
		default:
			w.write(seg.Raw)
		}
		w.pos = seg.Location.End()
	}
	if !inserted {
		if err := writeInserts(); err != nil {
			return nil, err
		}
	}
	w.copyTo(size)
	if w.err != nil {
		return nil, w.err
	}

	if framer == nil {
		return w.result(), nil
	}
	out, err := framer.Finalize(w.result())
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", pm.Format, err)
	}
	m.log.Debug().
		Str("format", pm.Format.String()).
		Int("size", len(out)).
		Dur("duration", time.Since(start)).
		Msg("reconstructed")
	return out, nil
}

func (m *Manager) frame(w *rebuilder, framer registry.Framer, seg *Segment, c Content) error {
	payload, err := m.encode(c)
	if err != nil {
		return fmt.Errorf("segment %d: %w", seg.Index, err)
	}
	unit, err := framer.Frame(seg.Location, seg.Raw, payload)
	if err != nil {
		return fmt.Errorf("segment %d: %w", seg.Index, err)
	}
	w.write(unit)
	return nil
}

// encode turns content into the payload a framer expects.
func (m *Manager) encode(c Content) ([]byte, error) {
	switch {
	case c.Exif != nil:
		return exif.Encode(c.Exif)
	case c.IPTC != nil:
		return iptc.Encode(c.IPTC), nil
	case c.XMP != nil:
		doc := c.XMP
		if doc.Toolkit == "" && m.toolkit != "" {
			doc = doc.Clone()
			doc.Toolkit = m.toolkit
		}
		return xmp.Serialize(doc, xmp.SerializeOptions{
			TargetSize: m.xmpPadding,
			ReadOnly:   doc.ReadOnly,
			Resolver:   m.registry,
		})
	case c.Text != nil:
		return []byte(c.Text.Value), nil
	default:
		return c.Payload, nil
	}
}

func normalizable(seg *Segment) bool {
	return seg.Exif != nil || seg.IPTC != nil || seg.XMP != nil
}

func contentOf(seg *Segment) Content {
	return Content{Exif: seg.Exif, IPTC: seg.IPTC, XMP: seg.XMP}
}

// rebuilder writes the output front to back, copying source ranges
// between the segments it is given.
type rebuilder struct {
	src io.ReaderAt
	buf *bytes.Buffer
	sw  *binary.SafeWriter
	pos int64
	err error
}

func newRebuilder(src io.ReaderAt, size int64) *rebuilder {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	return &rebuilder{src: src, buf: buf, sw: binary.NewSafeWriter(buf)}
}

// copyTo copies source bytes from pos up to end.
func (w *rebuilder) copyTo(end int64) {
	if w.err != nil || end <= w.pos {
		return
	}
	if err := w.sw.CopyRange(w.src, w.pos, end-w.pos); err != nil {
		w.err = fmt.Errorf("copy image data at offset %d: %w", w.pos, err)
		return
	}
	w.pos = end
}

func (w *rebuilder) write(b []byte) {
	if w.err == nil {
		w.err = w.sw.WriteBytes(b)
	}
}

func (w *rebuilder) result() []byte {
	return w.buf.Bytes()
}
