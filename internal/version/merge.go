package version

import (
	"context"
	"fmt"
	"strings"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Conflict is a property both branches changed differently relative to the
// base. A nil value means the property is absent on that side.
type Conflict struct {
	Namespace string
	Property  string
	Base      xmp.Value
	A         xmp.Value
	B         xmp.Value
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s/%s: a=%s b=%s", c.Namespace, c.Property, describe(c.A), describe(c.B))
}

func describe(v xmp.Value) string {
	if v == nil {
		return "<removed>"
	}
	if s, ok := xmp.Lexical(v); ok {
		return fmt.Sprintf("%q", s)
	}
	return v.Kind().String()
}

// MergeConflictError is returned under FailOnConflict. It lists every
// conflict, not just the first.
type MergeConflictError struct {
	Conflicts []Conflict
}

func (e *MergeConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return fmt.Sprintf("merge: %d conflicts: %s", len(e.Conflicts), strings.Join(parts, "; "))
}

// Resolver decides one conflict. Returning a nil value removes the property.
// The store holds no lock while a resolver runs, so it may block on user
// input or call back into the store.
type Resolver func(ctx context.Context, c Conflict) (xmp.Value, error)

type policyKind int

const (
	policyFail policyKind = iota
	policyPreferA
	policyPreferB
	policyResolve
)

// ConflictPolicy decides how conflicting properties are merged.
type ConflictPolicy struct {
	kind    policyKind
	resolve Resolver
}

// Conflict policies.
var (
	FailOnConflict = ConflictPolicy{kind: policyFail}
	PreferA        = ConflictPolicy{kind: policyPreferA}
	PreferB        = ConflictPolicy{kind: policyPreferB}
)

// ResolveWith returns a policy that asks r about each conflict in order.
func ResolveWith(r Resolver) ConflictPolicy {
	return ConflictPolicy{kind: policyResolve, resolve: r}
}

func (p ConflictPolicy) String() string {
	switch p.kind {
	case policyPreferA:
		return "prefer-a"
	case policyPreferB:
		return "prefer-b"
	case policyResolve:
		return "resolve"
	default:
		return "fail"
	}
}

// Resolution records how one conflict was settled.
type Resolution struct {
	Conflict
	Value xmp.Value
}

// ThreeWay merges a and b against their common base. A property changed on
// one side only takes that side's value; identical changes are taken once;
// anything else is a conflict settled by policy.
func ThreeWay(ctx context.Context, base, a, b Document, policy ConflictPolicy) (Document, []Resolution, error) {
	merged := make(Document)
	var conflicts []Conflict

	for _, ns := range unionKeys(base, a, b) {
		for _, name := range unionKeys(base[ns], a[ns], b[ns]) {
			bv, av, cv := lookup(base, ns, name), lookup(a, ns, name), lookup(b, ns, name)
			switch {
			case xmp.ValueEqual(av, cv):
				merged.set(ns, name, av)
			case xmp.ValueEqual(av, bv):
				merged.set(ns, name, cv)
			case xmp.ValueEqual(cv, bv):
				merged.set(ns, name, av)
			default:
				conflicts = append(conflicts, Conflict{Namespace: ns, Property: name, Base: bv, A: av, B: cv})
			}
		}
	}

	if len(conflicts) == 0 {
		return merged, nil, nil
	}
	if policy.kind == policyFail {
		return nil, nil, &MergeConflictError{Conflicts: conflicts}
	}

	resolutions := make([]Resolution, 0, len(conflicts))
	for _, c := range conflicts {
		var v xmp.Value
		switch policy.kind {
		case policyPreferA:
			v = c.A
		case policyPreferB:
			v = c.B
		case policyResolve:
			if policy.resolve == nil {
				return nil, nil, fmt.Errorf("merge: ResolveWith given a nil resolver")
			}
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			var err error
			if v, err = policy.resolve(ctx, c); err != nil {
				return nil, nil, fmt.Errorf("resolve %s/%s: %w", c.Namespace, c.Property, err)
			}
		}
		merged.set(c.Namespace, c.Property, v)
		resolutions = append(resolutions, Resolution{Conflict: c, Value: v})
	}
	return merged, resolutions, nil
}

func lookup(d Document, ns, name string) xmp.Value {
	return d[ns][name]
}
