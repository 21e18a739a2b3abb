package version

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for an unknown version id.
	ErrNotFound = errors.New("version: not found")
	// ErrExists is returned when a backend already holds the id.
	ErrExists = errors.New("version: already exists")
	// ErrCorrupt is returned when a reconstructed document does not match
	// its recorded content hash.
	ErrCorrupt = errors.New("version: content hash mismatch")
)

// Version is one stored record. Exactly one of Full and Delta is set; a
// root version always stores the full document.
type Version struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parentId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Author      string    `json:"author,omitempty"`
	Message     string    `json:"message,omitempty"`
	ContentHash string    `json:"contentHash"`

	// Depth counts the deltas between this version and its nearest full
	// ancestor. Zero for full versions.
	Depth int `json:"depth,omitempty"`

	// Stored is "full" or "delta".
	Stored string `json:"stored"`

	// MergedFrom lists the base, A and B ids when the version was
	// committed from a merge.
	MergedFrom []string `json:"mergedFrom,omitempty"`

	Full  Document `json:"full,omitempty"`
	Delta Delta    `json:"delta,omitempty"`
}

// Representations recorded in Version.Stored.
const (
	StoredFull  = "full"
	StoredDelta = "delta"
)

// IsDelta reports whether the version stores a delta against its parent.
func (v *Version) IsDelta() bool {
	return v.Stored == StoredDelta
}

func encodeVersion(v *Version) ([]byte, error) {
	return json.Marshal(v)
}

func decodeVersion(data []byte) (*Version, error) {
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Backend persists version records. Records are immutable: Put fails with
// ErrExists for a known id. Implementations must be safe for concurrent use.
type Backend interface {
	Put(ctx context.Context, v *Version) error
	Get(ctx context.Context, id string) (*Version, error)
	List(ctx context.Context) ([]string, error)
}

// MemoryBackend keeps encoded records in memory. Storing the encoding keeps
// records immune to later mutation of the caller's documents.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (m *MemoryBackend) Put(ctx context.Context, v *Version) error {
	data, err := encodeVersion(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[v.ID]; ok {
		return ErrExists
	}
	m.records[v.ID] = data
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, id string) (*Version, error) {
	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeVersion(data)
}

func (m *MemoryBackend) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
