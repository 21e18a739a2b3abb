// Package iptc reads and writes IPTC-IIM dataset streams.
package iptc

import (
	"slices"
	"time"

	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

// Dataset is one record:dataset entry from the stream.
type Dataset struct {
	Record  uint8
	Dataset uint8
	// Name is the registered dataset name, empty for unknown datasets.
	Name string
	// Raw holds the data bytes exactly as stored.
	Raw []byte
	// Value is the decoded form: string, time.Time (dates and times),
	// uint16, or []byte for binary and unknown datasets.
	Value any
}

// Document is a parsed IPTC stream. Datasets keep stream order so encoding
// an unmodified document reproduces its layout.
type Document struct {
	Datasets []Dataset
	// UTF8 reports whether 1:90 declared UTF-8.
	UTF8     bool
	Warnings []types.Warning

	reg *schema.Registry
}

// Values returns every decoded value stored under name, in stream order.
func (d *Document) Values(name string) []any {
	var out []any
	for _, ds := range d.Datasets {
		if ds.Name == name {
			out = append(out, ds.Value)
		}
	}
	return out
}

// String returns the first value of name as text.
func (d *Document) String(name string) (string, bool) {
	for _, v := range d.Values(name) {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Strings returns every text value of name, in stream order.
func (d *Document) Strings(name string) []string {
	var out []string
	for _, v := range d.Values(name) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Date returns the first value of name as a time.
func (d *Document) Date(name string) (time.Time, bool) {
	for _, v := range d.Values(name) {
		if t, ok := v.(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Unknown returns the datasets with no registered definition.
func (d *Document) Unknown() []Dataset {
	var out []Dataset
	for _, ds := range d.Datasets {
		if ds.Name == "" {
			out = append(out, ds)
		}
	}
	return out
}

// Fields maps each known dataset name to its values. Non-repeatable
// datasets have exactly one value.
func (d *Document) Fields() map[string][]any {
	out := make(map[string][]any)
	for _, ds := range d.Datasets {
		if ds.Name != "" {
			out[ds.Name] = append(out[ds.Name], ds.Value)
		}
	}
	return out
}

func (d *Document) clone() *Document {
	out := *d
	out.Datasets = slices.Clone(d.Datasets)
	out.Warnings = slices.Clone(d.Warnings)
	return &out
}
