package schema

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Migration maps content written against an older schema version to the
// shape of a newer one.
//
// XMP packets carry no per-namespace version marker, so a migration decides
// from the document itself whether it applies: Needed reports true when the
// document still has the old shape.
type Migration struct {
	Namespace   string
	FromVersion int
	ToVersion   int
	Description string

	Needed func(doc *xmp.Document) bool
	Apply  func(doc *xmp.Document, now time.Time) (*xmp.Document, error)
}

// MigrationRecord notes one applied migration.
type MigrationRecord struct {
	Namespace   string
	FromVersion int
	ToVersion   int
	Description string
	AppliedAt   time.Time
}

// ErrInvalidMigration is returned by RegisterMigration for migrations that
// do not describe a forward step within a registered schema.
var ErrInvalidMigration = errors.New("schema: invalid migration")

// RegisterMigration adds m to its namespace's migration chain.
func (r *Registry) RegisterMigration(m Migration) error {
	if m.Needed == nil || m.Apply == nil {
		return fmt.Errorf("%w: Needed and Apply are required", ErrInvalidMigration)
	}
	if m.FromVersion >= m.ToVersion {
		return fmt.Errorf("%w: version %d -> %d is not forward", ErrInvalidMigration, m.FromVersion, m.ToVersion)
	}

	var err error
	r.update(func(s *snapshot) {
		sc, ok := s.schemas[m.Namespace]
		if !ok {
			err = fmt.Errorf("%w: namespace %q is not registered", ErrInvalidMigration, m.Namespace)
			return
		}
		if m.ToVersion > sc.Version {
			err = fmt.Errorf("%w: target version %d exceeds schema version %d", ErrInvalidMigration, m.ToVersion, sc.Version)
			return
		}
		chain := slices.Clone(s.migrations[m.Namespace])
		chain = append(chain, m)
		slices.SortStableFunc(chain, func(a, b Migration) int { return a.FromVersion - b.FromVersion })
		s.migrations[m.Namespace] = chain
	})
	return err
}

// Migrate applies every migration whose Needed reports true, namespace by
// namespace in version order. The input document is never modified. A failed
// migration aborts with the records of the steps already taken.
func (r *Registry) Migrate(doc *xmp.Document, now time.Time) (*xmp.Document, []MigrationRecord, error) {
	snap := r.load()

	namespaces := make([]string, 0, len(snap.migrations))
	for ns := range snap.migrations {
		namespaces = append(namespaces, ns)
	}
	slices.Sort(namespaces)

	var records []MigrationRecord
	cur := doc
	for _, ns := range namespaces {
		for _, m := range snap.migrations[ns] {
			if !m.Needed(cur) {
				continue
			}
			next, err := m.Apply(cur, now)
			if err != nil {
				return doc, records, fmt.Errorf("migrate %s v%d->v%d: %w", ns, m.FromVersion, m.ToVersion, err)
			}
			cur = next
			records = append(records, MigrationRecord{
				Namespace:   ns,
				FromVersion: m.FromVersion,
				ToVersion:   m.ToVersion,
				Description: m.Description,
				AppliedAt:   now,
			})
		}
	}
	return cur, records, nil
}

// WrapInStruct builds a migration for a property that changed from a scalar
// to a struct. The old value moves into valueField and migratedAtField
// records when the migration ran. Documents where the property is absent or
// already a struct are left alone.
func WrapInStruct(namespace, property string, from, to int, valueField, migratedAtField string) Migration {
	name := xmp.QName{Space: namespace, Local: property}
	return Migration{
		Namespace:   namespace,
		FromVersion: from,
		ToVersion:   to,
		Description: fmt.Sprintf("wrap %s into a struct", property),
		Needed: func(doc *xmp.Document) bool {
			v, ok := doc.Get(name)
			return ok && v.Kind().IsScalar()
		},
		Apply: func(doc *xmp.Document, now time.Time) (*xmp.Document, error) {
			v, ok := doc.Get(name)
			if !ok || !v.Kind().IsScalar() {
				return doc, nil
			}
			s := xmp.Struct{
				{Space: namespace, Local: valueField}:      v,
				{Space: namespace, Local: migratedAtField}: xmp.NewDate(now),
			}
			return doc.With(name, s), nil
		},
	}
}
