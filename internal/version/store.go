package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simonhull/imagemeta/internal/logger"
	"github.com/simonhull/imagemeta/internal/metrics"
)

// Defaults.
const (
	DefaultDeltaThreshold = 0.5
	DefaultMaxChain       = 32
)

// MergeParent selects the parent pointer of a committed merge.
type MergeParent int

const (
	// ParentA makes the merge a child of the A side.
	ParentA MergeParent = iota
	// ParentB makes the merge a child of the B side.
	ParentB
	// ParentBase makes the merge a child of the common base.
	ParentBase
)

// Option configures a Store.
type Option func(*Store)

// WithBackend selects where records live. The default is in memory.
func WithBackend(b Backend) Option {
	return func(s *Store) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithDeltaThreshold stores a delta when its encoding is smaller than
// fraction times the full encoding. Zero disables deltas.
func WithDeltaThreshold(fraction float64) Option {
	return func(s *Store) {
		s.threshold = fraction
	}
}

// WithMaxChain caps the number of consecutive deltas; the next version is
// stored in full. It bounds the work GetVersion does.
func WithMaxChain(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxChain = n
		}
	}
}

// WithMergeParent selects the parent of committed merges (ParentA by default).
func WithMergeParent(p MergeParent) Option {
	return func(s *Store) {
		s.mergeParent = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		s.log = l.Component("version")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides time.Now for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a version tree over a Backend. It holds no locks of its own:
// backends synchronize storage, and merges run entirely outside them.
type Store struct {
	backend     Backend
	threshold   float64
	maxChain    int
	mergeParent MergeParent
	log         *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewStore creates a store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		backend:   NewMemoryBackend(),
		threshold: DefaultDeltaThreshold,
		maxChain:  DefaultMaxChain,
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommitInfo describes a new version.
type CommitInfo struct {
	Author  string
	Message string
}

// CreateVersion stores doc as a child of parentID ("" for a new root). The
// store keeps a delta when it is smaller than the configured fraction of
// the full encoding, and the full document otherwise.
func (s *Store) CreateVersion(ctx context.Context, doc Document, parentID string, info CommitInfo) (*Version, error) {
	return s.create(ctx, doc, parentID, info, nil)
}

func (s *Store) create(ctx context.Context, doc Document, parentID string, info CommitInfo, mergedFrom []string) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := Canonical(doc)
	if err != nil {
		return nil, fmt.Errorf("version: encode document: %w", err)
	}
	hash, err := Hash(doc)
	if err != nil {
		return nil, err
	}

	v := &Version{
		ID:          uuid.NewString(),
		ParentID:    parentID,
		Timestamp:   s.now().UTC(),
		Author:      info.Author,
		Message:     info.Message,
		ContentHash: hash,
		MergedFrom:  mergedFrom,
		Stored:      StoredFull,
		Full:        doc.Clone(),
	}
	size := len(full)

	if parentID != "" {
		parent, err := s.backend.Get(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("version: parent %s: %w", parentID, err)
		}
		if s.threshold > 0 && parent.Depth < s.maxChain {
			base, err := s.GetVersion(ctx, parentID)
			if err != nil {
				return nil, err
			}
			delta := Diff(base, doc)
			encoded, err := json.Marshal(delta)
			if err != nil {
				return nil, fmt.Errorf("version: encode delta: %w", err)
			}
			if float64(len(encoded)) < s.threshold*float64(len(full)) {
				v.Stored, v.Full, v.Delta = StoredDelta, nil, delta
				v.Depth = parent.Depth + 1
				size = len(encoded)
			}
		}
	}

	if err := s.backend.Put(ctx, v); err != nil {
		return nil, fmt.Errorf("version: store %s: %w", v.ID, err)
	}
	s.log.LogVersion(v.ID, parentID, v.Stored, size)
	s.metrics.RecordVersion(v.Stored)
	return v, nil
}

// GetRecord returns the stored record without reconstructing it.
func (s *Store) GetRecord(ctx context.Context, id string) (*Version, error) {
	return s.backend.Get(ctx, id)
}

// GetVersion reconstructs the document of version id: it walks back to the
// nearest full ancestor and applies the deltas forward. The result is
// checked against the recorded content hash.
func (s *Store) GetVersion(ctx context.Context, id string) (Document, error) {
	var chain []*Version
	seen := make(map[string]bool)
	for cur := id; ; {
		if seen[cur] {
			return nil, fmt.Errorf("version %s: delta chain loops at %s: %w", id, cur, ErrCorrupt)
		}
		seen[cur] = true
		v, err := s.backend.Get(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", cur, err)
		}
		chain = append(chain, v)
		if !v.IsDelta() {
			break
		}
		cur = v.ParentID
	}

	doc := chain[len(chain)-1].Full
	if doc == nil {
		doc = Document{}
	}
	for i := len(chain) - 2; i >= 0; i-- {
		doc = Apply(doc, chain[i].Delta)
	}

	hash, err := Hash(doc)
	if err != nil {
		return nil, err
	}
	if hash != chain[0].ContentHash {
		return nil, fmt.Errorf("version %s: %w", id, ErrCorrupt)
	}
	return doc, nil
}

// History returns the version and its ancestors, newest first.
func (s *Store) History(ctx context.Context, id string) ([]*Version, error) {
	var out []*Version
	seen := make(map[string]bool)
	for cur := id; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("version %s: parent cycle at %s: %w", id, cur, ErrCorrupt)
		}
		seen[cur] = true
		v, err := s.backend.Get(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", cur, err)
		}
		out = append(out, v)
		cur = v.ParentID
	}
	return out, nil
}

// Comparison reports how version B differs from version A.
type Comparison struct {
	AddedNamespaces    []string
	RemovedNamespaces  []string
	ModifiedNamespaces []string
	// Changes holds property-level changes for every namespace listed above.
	Changes Delta
}

// Identical reports whether the versions carry equal documents.
func (c *Comparison) Identical() bool {
	return c.Changes.Empty()
}

// Compare reports the namespaces and properties that differ between a and b.
func (s *Store) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	da, err := s.GetVersion(ctx, a)
	if err != nil {
		return nil, err
	}
	db, err := s.GetVersion(ctx, b)
	if err != nil {
		return nil, err
	}
	return compareDocuments(da, db), nil
}

func compareDocuments(a, b Document) *Comparison {
	c := &Comparison{Changes: Diff(a, b)}
	for _, ns := range unionKeys(c.Changes) {
		_, inA := a[ns]
		_, inB := b[ns]
		switch {
		case !inA:
			c.AddedNamespaces = append(c.AddedNamespaces, ns)
		case !inB:
			c.RemovedNamespaces = append(c.RemovedNamespaces, ns)
		default:
			c.ModifiedNamespaces = append(c.ModifiedNamespaces, ns)
		}
	}
	return c
}

// MergeResult is the outcome of a merge that has not been committed yet.
type MergeResult struct {
	Base, A, B  string
	Document    Document
	Resolutions []Resolution
}

// Merge three-way merges versions a and b against base. Under
// FailOnConflict the error is a *MergeConflictError listing every conflict.
// A ResolveWith resolver runs with no store lock held.
func (s *Store) Merge(ctx context.Context, base, a, b string, policy ConflictPolicy) (*MergeResult, error) {
	docs := make([]Document, 3)
	for i, id := range []string{base, a, b} {
		d, err := s.GetVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		docs[i] = d
	}

	merged, resolutions, err := ThreeWay(ctx, docs[0], docs[1], docs[2], policy)
	conflicts := len(resolutions)
	var mce *MergeConflictError
	if errors.As(err, &mce) {
		conflicts = len(mce.Conflicts)
	}
	s.log.LogMerge(base, a, b, conflicts, err)
	s.metrics.RecordMerge(conflicts, err)
	if err != nil {
		return nil, err
	}
	return &MergeResult{Base: base, A: a, B: b, Document: merged, Resolutions: resolutions}, nil
}

// CommitMerge stores a merge result as a new version whose parent is chosen
// by the store's MergeParent.
func (s *Store) CommitMerge(ctx context.Context, r *MergeResult, info CommitInfo) (*Version, error) {
	parent := r.A
	switch s.mergeParent {
	case ParentB:
		parent = r.B
	case ParentBase:
		parent = r.Base
	}
	return s.create(ctx, r.Document, parent, info, []string{r.Base, r.A, r.B})
}
