// Package schema holds the tag, dataset and namespace definitions the
// parsers and validators consult.
//
// A Registry is built once (NewDefault) and passed explicitly to every
// parser. Reads go through an immutable snapshot and never block; writers
// copy the snapshot, modify the copy and swap it in.
package schema

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Registry is the shared definition store. The zero value is not usable;
// call New or NewDefault.
type Registry struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

type tagKey struct {
	group Group
	id    uint16
}

type datasetKey struct {
	record  uint8
	dataset uint8
}

type snapshot struct {
	tags           map[tagKey]TagDefinition
	tagsByName     map[string]TagDefinition
	datasets       map[datasetKey]DatasetDefinition
	datasetsByName map[string]DatasetDefinition
	schemas        map[string]*Schema
	prefixes       map[string]string // uri -> prefix
	migrations     map[string][]Migration
}

func (s *snapshot) clone() *snapshot {
	out := &snapshot{
		tags:           make(map[tagKey]TagDefinition, len(s.tags)),
		tagsByName:     make(map[string]TagDefinition, len(s.tagsByName)),
		datasets:       make(map[datasetKey]DatasetDefinition, len(s.datasets)),
		datasetsByName: make(map[string]DatasetDefinition, len(s.datasetsByName)),
		schemas:        make(map[string]*Schema, len(s.schemas)),
		prefixes:       make(map[string]string, len(s.prefixes)),
		migrations:     make(map[string][]Migration, len(s.migrations)),
	}
	for k, v := range s.tags {
		out.tags[k] = v
	}
	for k, v := range s.tagsByName {
		out.tagsByName[k] = v
	}
	for k, v := range s.datasets {
		out.datasets[k] = v
	}
	for k, v := range s.datasetsByName {
		out.datasetsByName[k] = v
	}
	for k, v := range s.schemas {
		out.schemas[k] = v
	}
	for k, v := range s.prefixes {
		out.prefixes[k] = v
	}
	for k, v := range s.migrations {
		out.migrations[k] = v
	}
	return out
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store((&snapshot{}).clone())
	return r
}

// NewDefault returns a registry loaded with the built-in EXIF tags, IPTC
// datasets and XMP schemas.
func NewDefault() *Registry {
	r := New()
	r.update(func(s *snapshot) {
		for _, t := range exifTags {
			s.addTag(t)
		}
		for _, d := range iptcDatasets {
			s.addDataset(d)
		}
		for _, sc := range defaultSchemas() {
			s.schemas[sc.Namespace] = sc
			s.prefixes[sc.Namespace] = sc.Prefix
		}
	})
	return r
}

// update runs fn against a private copy of the current snapshot and
// publishes the result.
func (r *Registry) update(fn func(*snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.snap.Load().clone()
	fn(next)
	r.snap.Store(next)
}

func (r *Registry) load() *snapshot {
	return r.snap.Load()
}

func (s *snapshot) addTag(t TagDefinition) {
	s.tags[tagKey{t.Group, t.ID}] = t
	s.tagsByName[t.Name] = t
}

func (s *snapshot) addDataset(d DatasetDefinition) {
	s.datasets[datasetKey{d.Record, d.Dataset}] = d
	s.datasetsByName[d.Name] = d
}

// Tag looks up an EXIF tag by group and id.
func (r *Registry) Tag(g Group, id uint16) (TagDefinition, bool) {
	t, ok := r.load().tags[tagKey{g, id}]
	return t, ok
}

// TagByName looks up an EXIF tag by its name.
func (r *Registry) TagByName(name string) (TagDefinition, bool) {
	t, ok := r.load().tagsByName[name]
	return t, ok
}

// RegisterTag adds or replaces an EXIF tag definition.
func (r *Registry) RegisterTag(t TagDefinition) error {
	if t.Name == "" {
		return fmt.Errorf("schema: tag 0x%04X has no name", t.ID)
	}
	r.update(func(s *snapshot) { s.addTag(t) })
	return nil
}

// Dataset looks up an IPTC dataset.
func (r *Registry) Dataset(record, dataset uint8) (DatasetDefinition, bool) {
	d, ok := r.load().datasets[datasetKey{record, dataset}]
	return d, ok
}

// DatasetByName looks up an IPTC dataset by name.
func (r *Registry) DatasetByName(name string) (DatasetDefinition, bool) {
	d, ok := r.load().datasetsByName[name]
	return d, ok
}

// RegisterDataset adds or replaces an IPTC dataset definition.
func (r *Registry) RegisterDataset(d DatasetDefinition) error {
	if d.Name == "" {
		return fmt.Errorf("schema: dataset %d:%d has no name", d.Record, d.Dataset)
	}
	r.update(func(s *snapshot) { s.addDataset(d) })
	return nil
}

// Schema returns the XMP schema registered for a namespace URI.
func (r *Registry) Schema(namespace string) (*Schema, bool) {
	sc, ok := r.load().schemas[namespace]
	return sc, ok
}

// Prefix returns the preferred prefix of a registered namespace.
func (r *Registry) Prefix(namespace string) (string, bool) {
	p, ok := r.load().prefixes[namespace]
	return p, ok
}

// RegisterSchema adds or replaces an XMP schema. The schema is copied;
// later changes to sc do not affect the registry.
func (r *Registry) RegisterSchema(sc Schema) error {
	if sc.Namespace == "" {
		return fmt.Errorf("schema: namespace URI is required")
	}
	if sc.Version == 0 {
		sc.Version = 1
	}
	cp := sc
	cp.Properties = make(map[string]Property, len(sc.Properties))
	for name, p := range sc.Properties {
		p.Name = name
		cp.Properties[name] = p
	}
	r.update(func(s *snapshot) {
		s.schemas[cp.Namespace] = &cp
		if cp.Prefix != "" {
			s.prefixes[cp.Namespace] = cp.Prefix
		}
	})
	return nil
}

// ScalarKind implements xmp.TypeResolver. For array properties it reports
// the item kind.
func (r *Registry) ScalarKind(q xmp.QName) (xmp.Kind, bool) {
	sc, ok := r.load().schemas[q.Space]
	if !ok {
		return 0, false
	}
	p, ok := sc.Properties[q.Local]
	if !ok {
		return 0, false
	}
	if p.Kind == xmp.KindArray {
		return p.ItemKind, true
	}
	return p.Kind, true
}
