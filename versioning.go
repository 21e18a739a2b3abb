package imagemeta

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/simonhull/imagemeta/internal/logger"
	"github.com/simonhull/imagemeta/internal/version"
)

// Version engine types.
type (
	VersionStore    = version.Store
	VersionDocument = version.Document
	Properties      = version.Properties
	MetadataVersion = version.Version
	Delta           = version.Delta
	CommitInfo      = version.CommitInfo
	Comparison      = version.Comparison
	MergeResult     = version.MergeResult
	Conflict        = version.Conflict
	Resolution      = version.Resolution
	Resolver        = version.Resolver
	ConflictPolicy  = version.ConflictPolicy
	VersionBackend  = version.Backend
	VersionOption   = version.Option
	MergeParent     = version.MergeParent
)

// Conflict policies.
var (
	FailOnConflict = version.FailOnConflict
	PreferA        = version.PreferA
	PreferB        = version.PreferB
)

// Parents of committed merges.
const (
	MergeParentA    = version.ParentA
	MergeParentB    = version.ParentB
	MergeParentBase = version.ParentBase
)

// ResolveWith returns a policy that asks r about each conflict. r runs with
// no store lock held and may block, for example on user input.
func ResolveWith(r Resolver) ConflictPolicy {
	return version.ResolveWith(r)
}

// NewVersionStore returns a version store. Records are kept in memory unless
// WithVersionBackend selects another backend.
//
// Example:
//
//	store := imagemeta.NewVersionStore(imagemeta.WithDeltaThreshold(0.3))
//	v, err := store.CreateVersion(ctx, file.Snapshot(), "", imagemeta.CommitInfo{Author: "ana"})
func NewVersionStore(opts ...VersionOption) *VersionStore {
	return version.NewStore(opts...)
}

// OpenVersionStore returns a store persisting records as zstd-compressed
// files in dir. Close the returned closer when done.
func OpenVersionStore(dir string, opts ...VersionOption) (*VersionStore, io.Closer, error) {
	backend, err := version.NewFileBackend(dir)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]VersionOption{version.WithBackend(backend)}, opts...)
	return version.NewStore(opts...), backend, nil
}

// NewMemoryVersionBackend returns an in-memory backend.
func NewMemoryVersionBackend() VersionBackend {
	return version.NewMemoryBackend()
}

// Diff computes the delta that turns from into to.
func Diff(from, to VersionDocument) Delta {
	return version.Diff(from, to)
}

// WithVersionBackend selects where version records live.
func WithVersionBackend(b VersionBackend) VersionOption {
	return version.WithBackend(b)
}

// WithDeltaThreshold stores a delta when it is smaller than fraction times
// the full document. Default is 0.5; zero always stores full documents.
func WithDeltaThreshold(fraction float64) VersionOption {
	return version.WithDeltaThreshold(fraction)
}

// WithMaxChain caps the number of consecutive deltas. Default is 32.
func WithMaxChain(n int) VersionOption {
	return version.WithMaxChain(n)
}

// WithMergeParent selects the parent of committed merges.
func WithMergeParent(p MergeParent) VersionOption {
	return version.WithMergeParent(p)
}

// WithVersionLogger logs version creation and merges to l.
func WithVersionLogger(l zerolog.Logger) VersionOption {
	return version.WithLogger(logger.FromZerolog(l))
}

// WithVersionMetrics records version and merge metrics to m.
func WithVersionMetrics(m *Metrics) VersionOption {
	return version.WithMetrics(m)
}
