package imagemeta

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/imagemeta/internal/preserve"
	"github.com/simonhull/imagemeta/internal/types"
)

// File represents an opened image with its extracted metadata.
//
// Every metadata segment of the container is kept in Metadata, parsed or
// not. Set* methods stage changes; Save and SaveAs write them back and copy
// everything else from the original file unchanged.
//
// Always call Close() when done to release file resources:
//
//	file, err := imagemeta.Open("photo.jpg")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
type File struct {
	// Path to the image file (empty for OpenReader)
	Path string

	// Detected container format
	Format Format

	// File size in bytes
	Size int64

	// Extracted segments in file order
	Metadata *PreservedMetadata

	// Warnings encountered during parsing (non-fatal issues)
	Warnings []Warning

	// Committed is the version recorded by the last Save with WithCommit
	Committed *MetadataVersion

	// Internal state (unexported)
	reader  io.ReaderAt
	options *openOptions
	manager *preserve.Manager
	staged  map[SegmentType]Content
	removed map[int]bool
}

// Open opens an image file and extracts its metadata.
//
// Supported formats: JPEG, PNG, TIFF, WebP
//
// A damaged segment does not make Open fail: the segment is kept raw and
// reported in Metadata.Errors and Warnings. Use WithStrictParsing to turn
// those into errors.
//
// Example:
//
//	file, err := imagemeta.Open("photo.jpg")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
//	fmt.Println(file.Format, len(file.Metadata.Segments))
func Open(path string, opts ...Option) (*File, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext opens a file with context support for cancellation. The
// context is checked between container units and between segments.
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	file, err := imagemeta.OpenContext(ctx, "photo.jpg")
func OpenContext(ctx context.Context, path string, opts ...Option) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	file, err := openReader(ctx, f, stat.Size(), path, newOptions(opts))
	if err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// OpenReader extracts metadata from an in-memory or otherwise non-file
// source. The returned File supports SaveAs but not Save.
func OpenReader(ctx context.Context, r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	return openReader(ctx, r, size, "", newOptions(opts))
}

// openReader opens from an io.ReaderAt.
func openReader(ctx context.Context, r io.ReaderAt, size int64, path string, options *openOptions) (*File, error) {
	manager := options.manager()
	pm, err := manager.ExtractNamed(ctx, r, size, path)
	if err != nil {
		return nil, err
	}

	file := &File{
		Path:     path,
		Format:   pm.Format,
		Size:     size,
		Metadata: pm,
		Warnings: pm.Warnings,
		reader:   r,
		options:  options,
		manager:  manager,
	}

	if options.strictParsing {
		if err := pm.Err(); err != nil {
			return nil, fmt.Errorf("strict parsing failed: %w", err)
		}
		if len(file.Warnings) > 0 {
			return nil, fmt.Errorf("strict parsing failed: %s", file.Warnings[0])
		}
	}

	// Apply option: ignore warnings
	if options.ignoreWarnings {
		file.Warnings = nil
	}

	return file, nil
}

// Close releases resources held by the file.
//
// After Close is called, the File should not be used.
func (f *File) Close() error {
	if closer, ok := f.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Exif returns the EXIF document, including staged changes. Nil when the
// file has none.
func (f *File) Exif() *ExifDocument {
	if c, ok := f.staged[SegmentExif]; ok {
		return c.Exif
	}
	return f.Metadata.Exif()
}

// IPTC returns the IPTC document, including staged changes.
func (f *File) IPTC() *IPTCDocument {
	if c, ok := f.staged[SegmentIPTC]; ok {
		return c.IPTC
	}
	return f.Metadata.IPTC()
}

// XMP returns the XMP document, including staged changes.
func (f *File) XMP() *XMPDocument {
	if c, ok := f.staged[SegmentXMP]; ok {
		return c.XMP
	}
	return f.Metadata.XMP()
}

// Texts returns the free-text entries (PNG text chunks, JPEG comments).
func (f *File) Texts() []TextEntry {
	return f.Metadata.Texts()
}

// SetExif stages doc as the file's EXIF block. The first EXIF segment is
// replaced, or a new one is added when the file has none.
func (f *File) SetExif(doc *ExifDocument) {
	f.stage(SegmentExif, Content{Exif: doc})
}

// SetIPTC stages doc as the file's IPTC stream.
func (f *File) SetIPTC(doc *IPTCDocument) {
	f.stage(SegmentIPTC, Content{IPTC: doc})
}

// SetXMP stages doc as the file's XMP packet.
func (f *File) SetXMP(doc *XMPDocument) {
	f.stage(SegmentXMP, Content{XMP: doc})
}

// RemoveSegment stages the removal of segment index (see Metadata.Segments).
func (f *File) RemoveSegment(index int) {
	if f.removed == nil {
		f.removed = make(map[int]bool)
	}
	f.removed[index] = true
}

func (f *File) stage(t SegmentType, c Content) {
	if f.staged == nil {
		f.staged = make(map[SegmentType]Content)
	}
	f.staged[t] = c
}

// Modified reports whether changes are staged.
func (f *File) Modified() bool {
	return len(f.staged) > 0 || len(f.removed) > 0
}

// modifications turns the staged changes into a change set.
func (f *File) modifications() *Modifications {
	mods := preserve.NewModifications()
	for _, t := range []SegmentType{SegmentExif, SegmentIPTC, SegmentXMP} {
		c, ok := f.staged[t]
		if !ok {
			continue
		}
		if seg := f.firstOfType(t); seg != nil {
			mods.Replace(seg.Index, c)
		} else {
			mods.Insert(t, c)
		}
	}
	for i := range f.removed {
		mods.Remove(i)
	}
	return mods
}

// firstOfType returns the first segment of type t, parsed or not.
func (f *File) firstOfType(t SegmentType) *Segment {
	for _, s := range f.Metadata.Segments {
		if s.Type() == t && !f.removed[s.Index] {
			return s
		}
	}
	return nil
}

// Bytes returns the file contents with staged changes applied.
func (f *File) Bytes(ctx context.Context) ([]byte, error) {
	if f.reader == nil {
		return nil, fmt.Errorf("file not open: reader is nil")
	}
	return f.manager.Reconstruct(ctx, f.reader, f.Size, f.Metadata, f.modifications())
}

// Validate checks the XMP document against the registered schemas.
func (f *File) Validate() []ValidationError {
	doc := f.XMP()
	if doc == nil {
		return nil
	}
	return f.manager.Registry().Validate(doc)
}

// Migrate runs the registry's schema migrations on the XMP document and
// stages the result when any migration applied.
func (f *File) Migrate() ([]MigrationRecord, error) {
	doc := f.XMP()
	if doc == nil {
		return nil, nil
	}
	migrated, records, err := f.manager.Registry().Migrate(doc, time.Now())
	if err != nil {
		return records, err
	}
	if len(records) > 0 {
		f.SetXMP(migrated)
	}
	return records, nil
}

// Snapshot flattens the metadata, including staged changes, into a
// version document.
func (f *File) Snapshot() VersionDocument {
	view := &preserve.PreservedMetadata{Format: f.Format, Size: f.Size}
	if doc := f.Exif(); doc != nil {
		view.Segments = append(view.Segments, &Segment{Location: types.Location{Type: SegmentExif}, Exif: doc})
	}
	if doc := f.IPTC(); doc != nil {
		view.Segments = append(view.Segments, &Segment{Location: types.Location{Type: SegmentIPTC}, IPTC: doc})
	}
	if doc := f.XMP(); doc != nil {
		view.Segments = append(view.Segments, &Segment{Location: types.Location{Type: SegmentXMP}, XMP: doc})
	}
	return preserve.Snapshot(view)
}

// OpenMany opens multiple image files concurrently.
//
// Files are opened in parallel using up to runtime.NumCPU() goroutines.
// Results are returned in the same order as the input paths.
//
// If any file fails to open, all successfully opened files are closed
// and an error is returned.
//
// Example:
//
//	files, err := imagemeta.OpenMany(ctx, paths...)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() {
//		for _, f := range files {
//			f.Close()
//		}
//	}()
func OpenMany(ctx context.Context, paths ...string) ([]*File, error) {
	return OpenManyWithOptions(ctx, paths, nil)
}

// OpenManyWithOptions is OpenMany with options applied to every file.
func OpenManyWithOptions(ctx context.Context, paths []string, opts []Option) ([]*File, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU()) // Limit concurrent operations

	results := make([]*File, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			// Check for cancellation
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			file, err := OpenContext(ctx, path, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = file
			return nil
		})
	}

	// Wait for all to complete
	if err := g.Wait(); err != nil {
		// Close any successfully opened files
		for _, file := range results {
			if file != nil {
				file.Close()
			}
		}
		return nil, err
	}

	return results, nil
}
