package imagemeta

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/logger"
	"github.com/simonhull/imagemeta/internal/metrics"
	"github.com/simonhull/imagemeta/internal/preserve"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Option configures behavior when opening image files.
//
// Example:
//
//	file, err := imagemeta.Open("photo.jpg",
//	    imagemeta.WithStrictParsing(),
//	    imagemeta.WithConcurrency(2),
//	)
type Option func(*openOptions)

// openOptions holds configuration for opening files.
type openOptions struct {
	strictParsing  bool // Fail on any warning or segment error
	ignoreWarnings bool // Suppress all warnings
	normalize      bool // Re-encode parsed segments on save
	concurrency    int  // Segments parsed at once
	maxIFDEntries  int  // IFD entry ceiling (0 = default)
	duplicates     iptc.DuplicatePolicy
	maxInflate     int64
	xmpPadding     int
	xmpMaxDepth    int
	xmpMaxSize     int
	makerNotes     *exif.MakerNotes
	registry       *schema.Registry
	log            *logger.Logger
	metrics        *metrics.Metrics
}

// defaultOptions returns the default configuration.
func defaultOptions() *openOptions {
	return &openOptions{
		concurrency: runtime.NumCPU(),
		duplicates:  iptc.LastWins,
		maxInflate:  preserve.DefaultMaxInflate,
		log:         logger.Nop(),
	}
}

func newOptions(opts []Option) *openOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// manager builds the preservation manager the options describe.
func (o *openOptions) manager() *preserve.Manager {
	popts := []preserve.Option{
		preserve.WithRegistry(o.registry),
		preserve.WithConcurrency(o.concurrency),
		preserve.WithMaxInflate(o.maxInflate),
		preserve.WithIPTCOptions(iptc.WithDuplicatePolicy(o.duplicates)),
		preserve.WithLogger(o.log),
		preserve.WithMetrics(o.metrics),
		preserve.WithToolkit(Toolkit),
	}
	popts = append(popts, preserve.WithExifOptions(o.exifOptions()...))
	popts = append(popts, preserve.WithXMPOptions(o.xmpOptions()...))
	if o.xmpPadding > 0 {
		popts = append(popts, preserve.WithXMPPadding(o.xmpPadding))
	}
	if o.normalize {
		popts = append(popts, preserve.WithNormalize())
	}
	return preserve.NewManager(popts...)
}

func (o *openOptions) exifOptions() []exif.Option {
	var opts []exif.Option
	if o.maxIFDEntries > 0 {
		opts = append(opts, exif.WithMaxEntries(o.maxIFDEntries))
	}
	if o.makerNotes != nil {
		opts = append(opts, exif.WithMakerNotes(o.makerNotes))
	}
	return opts
}

func (o *openOptions) xmpOptions() []xmp.Option {
	var opts []xmp.Option
	if o.xmpMaxDepth > 0 {
		opts = append(opts, xmp.WithMaxDepth(o.xmpMaxDepth))
	}
	if o.xmpMaxSize > 0 {
		opts = append(opts, xmp.WithMaxSize(o.xmpMaxSize))
	}
	return opts
}

// WithStrictParsing treats any warning or segment error as a fatal error.
//
// By default, imagemeta keeps going when a segment is damaged: the segment
// is preserved raw and the problem is reported in File.Warnings and
// File.Metadata.Errors.
func WithStrictParsing() Option {
	return func(o *openOptions) {
		o.strictParsing = true
	}
}

// WithIgnoreWarnings suppresses all warnings.
//
// Example:
//
//	file, err := imagemeta.Open("photo.jpg", imagemeta.WithIgnoreWarnings())
//	// file.Warnings will always be empty
func WithIgnoreWarnings() Option {
	return func(o *openOptions) {
		o.ignoreWarnings = true
	}
}

// WithNormalize re-encodes every parsed Exif, IPTC and XMP segment when the
// file is saved, instead of copying unmodified segments verbatim.
func WithNormalize() Option {
	return func(o *openOptions) {
		o.normalize = true
	}
}

// WithConcurrency bounds the number of segments parsed in parallel.
// Default is runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(o *openOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxIFDEntries sets the entry count above which an IFD is rejected as
// malformed. Default is 1000.
func WithMaxIFDEntries(n int) Option {
	return func(o *openOptions) {
		o.maxIFDEntries = n
	}
}

// WithDuplicateDatasets selects which of several non-repeatable IPTC
// datasets is kept. Default is LastWins.
func WithDuplicateDatasets(p DuplicatePolicy) Option {
	return func(o *openOptions) {
		o.duplicates = p
	}
}

// WithMaxInflateSize caps the decompressed size of compressed PNG text.
//
// Example:
//
//	// Refuse text chunks that inflate beyond 1MB
//	file, err := imagemeta.Open("photo.png",
//	    imagemeta.WithMaxInflateSize(1<<20),
//	)
func WithMaxInflateSize(n int64) Option {
	return func(o *openOptions) {
		o.maxInflate = n
	}
}

// WithXMPPadding pads rewritten XMP packets with whitespace up to n bytes
// so later edits can be made in place. By default packets are not padded.
func WithXMPPadding(n int) Option {
	return func(o *openOptions) {
		o.xmpPadding = n
	}
}

// WithXMPLimits bounds XMP parsing: the deepest element nesting accepted
// and the largest packet in bytes. Zero keeps the default for that limit.
func WithXMPLimits(maxDepth, maxSize int) Option {
	return func(o *openOptions) {
		o.xmpMaxDepth = maxDepth
		o.xmpMaxSize = maxSize
	}
}

// WithMakerNotes decodes EXIF maker notes with m instead of the built-in
// Canon, Nikon and Apple parsers.
//
// Example:
//
//	notes := imagemeta.DefaultMakerNotes()
//	notes.Register("fujifilm", imagemeta.MakerNoteParserFunc(parseFuji))
//	file, err := imagemeta.Open("photo.jpg", imagemeta.WithMakerNotes(notes))
func WithMakerNotes(m *MakerNotes) Option {
	return func(o *openOptions) {
		o.makerNotes = m
	}
}

// Maker note types.
type (
	MakerNote           = exif.MakerNote
	MakerNotes          = exif.MakerNotes
	MakerNoteInput      = exif.MakerNoteInput
	MakerNoteParser     = exif.MakerNoteParser
	MakerNoteParserFunc = exif.MakerNoteParserFunc
)

// NewMakerNotes returns an empty maker note registry.
func NewMakerNotes() *MakerNotes {
	return exif.NewMakerNotes()
}

// DefaultMakerNotes returns a registry with the built-in parsers.
func DefaultMakerNotes() *MakerNotes {
	return exif.DefaultMakerNotes()
}

// WithRegistry parses against reg instead of the built-in registry. Use it
// to register custom tags, datasets or XMP schemas.
func WithRegistry(reg *Registry) Option {
	return func(o *openOptions) {
		o.registry = reg
	}
}

// WithLogger logs segment and extraction events to l.
//
// Example:
//
//	l := zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
//	file, err := imagemeta.Open("photo.jpg", imagemeta.WithLogger(l))
func WithLogger(l zerolog.Logger) Option {
	return func(o *openOptions) {
		o.log = logger.FromZerolog(l)
	}
}

// Metrics holds the Prometheus collectors imagemeta records to.
type Metrics = metrics.Metrics

// NewMetrics creates the collectors and registers them on reg. Create it
// once and pass it to every Open call with WithMetrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// WithMetrics records extraction and reconstruction metrics to m.
//
// Example:
//
//	m := imagemeta.NewMetrics(prometheus.DefaultRegisterer)
//	file, err := imagemeta.Open("photo.jpg", imagemeta.WithMetrics(m))
func WithMetrics(m *Metrics) Option {
	return func(o *openOptions) {
		o.metrics = m
	}
}

// DuplicatePolicy is an alias to iptc.DuplicatePolicy.
type DuplicatePolicy = iptc.DuplicatePolicy

// Duplicate dataset policies.
const (
	LastWins  = iptc.LastWins
	FirstWins = iptc.FirstWins
)
