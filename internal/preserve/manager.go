// Package preserve extracts the metadata segments of an image container and
// writes the container back with selected segments modified, removed or
// added. Segments that are not touched are copied byte for byte.
package preserve

import (
	"runtime"

	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/logger"
	"github.com/simonhull/imagemeta/internal/metrics"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/xmp"

	// Container packages register their locators and framers.
	_ "github.com/simonhull/imagemeta/internal/jpeg"
	_ "github.com/simonhull/imagemeta/internal/png"
	_ "github.com/simonhull/imagemeta/internal/tiff"
	_ "github.com/simonhull/imagemeta/internal/webp"
)

// DefaultMaxInflate caps the decompressed size of a compressed text payload.
const DefaultMaxInflate = 16 << 20

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the schema registry used by the segment parsers.
func WithRegistry(reg *schema.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithConcurrency bounds the number of segments parsed at once.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithNormalize makes Reconstruct re-serialize every parsed Exif, IPTC and
// XMP segment instead of copying its original bytes.
func WithNormalize() Option {
	return func(m *Manager) {
		m.normalize = true
	}
}

// WithMaxInflate caps the decompressed size of zTXt and compressed iTXt
// payloads. Larger payloads fail to parse and are kept raw.
func WithMaxInflate(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxInflate = n
		}
	}
}

// WithXMPPadding sets the padding target for XMP packets written by
// Reconstruct.
func WithXMPPadding(n int) Option {
	return func(m *Manager) {
		m.xmpPadding = n
	}
}

// WithToolkit stamps packets that name no toolkit with an x:xmptk value
// when Reconstruct serializes them.
func WithToolkit(name string) Option {
	return func(m *Manager) {
		m.toolkit = name
	}
}

// WithExifOptions passes options to the EXIF parser.
func WithExifOptions(opts ...exif.Option) Option {
	return func(m *Manager) {
		m.exifOpts = append(m.exifOpts, opts...)
	}
}

// WithXMPOptions passes options to the XMP parser. The registry is always
// installed as the resolver.
func WithXMPOptions(opts ...xmp.Option) Option {
	return func(m *Manager) {
		m.xmpOpts = append(m.xmpOpts, opts...)
	}
}

// WithIPTCOptions passes options to the IPTC parser.
func WithIPTCOptions(opts ...iptc.Option) Option {
	return func(m *Manager) {
		m.iptcOpts = append(m.iptcOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		m.log = l.Component("preserve")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// Manager extracts and reconstructs container metadata. It is safe for
// concurrent use.
type Manager struct {
	registry    *schema.Registry
	concurrency int
	normalize   bool
	maxInflate  int64
	xmpPadding  int
	toolkit     string
	exifOpts    []exif.Option
	iptcOpts    []iptc.Option
	xmpOpts     []xmp.Option
	log         *logger.Logger
	metrics     *metrics.Metrics

	exif *exif.Parser
}

// NewManager creates a manager. Without WithRegistry it uses
// schema.NewDefault().
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		concurrency: runtime.NumCPU(),
		maxInflate:  DefaultMaxInflate,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = schema.NewDefault()
	}
	m.exif = exif.NewParser(m.registry, m.exifOpts...)
	return m
}

// Registry returns the schema registry the manager parses with.
func (m *Manager) Registry() *schema.Registry {
	return m.registry
}
