package exif

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

// DefaultMaxEntries is the IFD entry count above which a directory is
// considered corrupt.
const DefaultMaxEntries = 1000

// Option configures a Parser.
type Option func(*Parser)

// WithMaxEntries sets the IFD entry count ceiling.
func WithMaxEntries(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxEntries = n
		}
	}
}

// WithMakerNotes replaces the maker note registry consulted for tag 0x927C.
func WithMakerNotes(m *MakerNotes) Option {
	return func(p *Parser) {
		p.makerNotes = m
	}
}

// Parser decodes EXIF blocks. A Parser holds no per-parse state and is safe
// for concurrent use.
type Parser struct {
	reg        *schema.Registry
	makerNotes *MakerNotes
	maxEntries int
}

// NewParser returns a parser resolving tags against reg. A nil reg selects
// schema.NewDefault().
func NewParser(reg *schema.Registry, opts ...Option) *Parser {
	if reg == nil {
		reg = schema.NewDefault()
	}
	p := &Parser{
		reg:        reg,
		makerNotes: DefaultMakerNotes(),
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// traversal is the state of one Parse call. The visited set is never shared
// between calls.
type traversal struct {
	p   *Parser
	ifd ifdReader

	mu       sync.Mutex
	visited  map[int64]string
	warnings []types.Warning
}

// claim marks off as visited, failing if an earlier pointer already led there.
func (t *traversal) claim(off int64, from string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.visited[off]; seen {
		return &types.CircularReferenceError{Offset: off, From: from}
	}
	t.visited[off] = from
	return nil
}

func (t *traversal) warn(ws ...types.Warning) {
	if len(ws) == 0 {
		return
	}
	t.mu.Lock()
	t.warnings = append(t.warnings, ws...)
	t.mu.Unlock()
}

// Parse decodes a TIFF-structured EXIF block (starting at the byte order
// mark). Header corruption fails with a MalformedHeaderError and pointer
// cycles with a CircularReferenceError; problems confined to one entry or
// to the maker note become warnings on the document.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Document, error) {
	sr := binary.FromBytes(data, "exif")
	order, first, err := parseHeader(sr)
	if err != nil {
		return nil, err
	}

	t := &traversal{
		p:       p,
		ifd:     ifdReader{sr: sr, order: order, maxEntries: p.maxEntries},
		visited: make(map[int64]string),
	}
	doc := NewDocument(p.reg, order)

	// The main chain is sequential: each next pointer lives in the
	// previous directory.
	var chain [][]rawEntry
	off, from := int64(first), "IFD0 offset"
	for off != 0 {
		entries, next, err := t.walk(ctx, off, from)
		if err != nil {
			return nil, err
		}
		chain = append(chain, entries)
		off, from = int64(next), fmt.Sprintf("IFD%d next pointer", len(chain)-1)
	}
	for i, entries := range chain {
		t.classify(doc, entries, schema.GroupImage, i)
	}

	var exifOff, gpsOff int64
	if len(chain) > 0 {
		exifOff = pointer(chain[0], schema.TagExifIFD, order)
		gpsOff = pointer(chain[0], schema.TagGPSIFD, order)
	}

	// Sub-IFDs are independent of each other once the chain is known.
	var exifEntries, interopEntries, gpsEntries []rawEntry
	g, gctx := errgroup.WithContext(ctx)
	if exifOff != 0 {
		g.Go(func() error {
			var err error
			exifEntries, err = t.subChain(gctx, exifOff, "Exif IFD pointer")
			if err != nil {
				return err
			}
			if iop := pointer(exifEntries, schema.TagInteropIFD, order); iop != 0 {
				interopEntries, err = t.subChain(gctx, iop, "Interop IFD pointer")
			}
			return err
		})
	}
	if gpsOff != 0 {
		g.Go(func() error {
			var err error
			gpsEntries, err = t.subChain(gctx, gpsOff, "GPS IFD pointer")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.classify(doc, exifEntries, schema.GroupExif, 0)
	t.classify(doc, interopEntries, schema.GroupInterop, 0)
	t.classify(doc, gpsEntries, schema.GroupGPS, 0)

	doc.GPS = decodeGPS(doc.Tags)
	t.thumbnail(doc, sr)
	t.makerNote(doc, data)

	doc.Warnings = t.warnings
	return doc, nil
}

// walk claims and reads one directory.
func (t *traversal) walk(ctx context.Context, off int64, from string) ([]rawEntry, uint32, error) {
	if err := t.claim(off, from); err != nil {
		return nil, 0, err
	}
	entries, next, warnings, err := t.ifd.read(ctx, off)
	if err != nil {
		return nil, 0, err
	}
	t.warn(warnings...)
	return entries, next, nil
}

// subChain reads a sub-IFD and any directories chained after it.
func (t *traversal) subChain(ctx context.Context, off int64, from string) ([]rawEntry, error) {
	var all []rawEntry
	for off != 0 {
		entries, next, err := t.walk(ctx, off, from)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		off, from = int64(next), from+" (next)"
	}
	return all, nil
}

func (t *traversal) classify(doc *Document, entries []rawEntry, g schema.Group, ifd int) {
	for _, e := range entries {
		tag := Tag{
			Group:  g,
			IFD:    ifd,
			ID:     e.ID,
			Type:   e.Type,
			Count:  e.Count,
			Raw:    e.Raw,
			Offset: e.Offset,
			Value:  decodeValue(e.Type, e.Count, e.Raw, doc.Order),
		}
		if def, ok := t.p.reg.Tag(g, e.ID); ok {
			tag.Name = def.Name
			doc.Tags = append(doc.Tags, tag)
		} else {
			doc.Unknown = append(doc.Unknown, tag)
		}
	}
}

func (t *traversal) thumbnail(doc *Document, sr *binary.SafeReader) {
	start, ok1 := doc.Lookup(schema.GroupImage, 1, schema.TagThumbnailStart)
	length, ok2 := doc.Lookup(schema.GroupImage, 1, schema.TagThumbnailLen)
	if !ok1 || !ok2 {
		return
	}
	off, _ := start.Value.(uint32)
	n, _ := length.Value.(uint32)
	thumb, err := sr.Slice(int64(off), int64(n), "thumbnail")
	if err != nil {
		t.warn(types.Warning{Stage: "thumbnail", Message: err.Error(), Offset: int64(off)})
		return
	}
	doc.Thumbnail = thumb
}

// makerNote dispatches tag 0x927C by camera make. Failures, including
// panics in a maker note parser, are downgraded to warnings.
func (t *traversal) makerNote(doc *Document, data []byte) {
	tag, ok := doc.Lookup(schema.GroupExif, 0, schema.TagMakerNote)
	if !ok {
		return
	}
	offset := tag.Offset

	mn, err := t.p.makerNotes.parse(doc.Make(), MakerNoteInput{
		Data:   tag.Raw,
		TIFF:   data,
		Offset: offset,
		Order:  doc.Order,
	})
	if err != nil {
		t.warn(types.Warning{Stage: "makernote", Message: err.Error(), Offset: offset})
		mn = &MakerNote{Make: doc.Make(), Raw: tag.Raw}
	}
	doc.MakerNote = mn
}

// pointer returns the value of a LONG pointer entry, or 0.
func pointer(entries []rawEntry, id uint16, order binary.Endianness) int64 {
	for _, e := range entries {
		if e.ID == id && len(e.Raw) >= 4 {
			return int64(binary.Decode[uint32](e.Raw, order))
		}
	}
	return 0
}
