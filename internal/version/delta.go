package version

import (
	"maps"
	"slices"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Change is a modified property. A nil side means the property was absent.
type Change struct {
	Old xmp.Value
	New xmp.Value
}

// NamespaceDelta lists property changes within one namespace.
type NamespaceDelta struct {
	Added    Properties        `json:"added,omitempty"`
	Removed  []string          `json:"removed,omitempty"`
	Modified map[string]Change `json:"modified,omitempty"`
}

func (nd *NamespaceDelta) empty() bool {
	return len(nd.Added) == 0 && len(nd.Removed) == 0 && len(nd.Modified) == 0
}

// Delta is the difference between two documents, keyed by namespace.
type Delta map[string]*NamespaceDelta

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	for _, nd := range d {
		if !nd.empty() {
			return false
		}
	}
	return true
}

// Diff computes the delta that turns from into to.
func Diff(from, to Document) Delta {
	out := make(Delta)
	for _, ns := range unionKeys(from, to) {
		a, b := from[ns], to[ns]
		nd := &NamespaceDelta{}
		for _, name := range unionKeys(a, b) {
			av, inA := a[name]
			bv, inB := b[name]
			switch {
			case !inA:
				if nd.Added == nil {
					nd.Added = make(Properties)
				}
				nd.Added[name] = xmp.Clone(bv)
			case !inB:
				nd.Removed = append(nd.Removed, name)
			case !xmp.ValueEqual(av, bv):
				if nd.Modified == nil {
					nd.Modified = make(map[string]Change)
				}
				nd.Modified[name] = Change{Old: xmp.Clone(av), New: xmp.Clone(bv)}
			}
		}
		if !nd.empty() {
			out[ns] = nd
		}
	}
	return out
}

// Apply returns base with the delta applied. base is not modified.
func Apply(base Document, d Delta) Document {
	out := base.Clone()
	for ns, nd := range d {
		for _, name := range nd.Removed {
			out.set(ns, name, nil)
		}
		for name, v := range nd.Added {
			out.set(ns, name, v)
		}
		for name, c := range nd.Modified {
			out.set(ns, name, c.New)
		}
	}
	return out
}

// unionKeys returns the sorted union of the maps' keys.
func unionKeys[M ~map[string]V, V any](ms ...M) []string {
	seen := make(map[string]struct{})
	for _, m := range ms {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
