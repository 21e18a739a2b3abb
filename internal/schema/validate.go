package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// ValidationCode classifies a validation failure.
type ValidationCode string

const (
	ValidationMissing ValidationCode = "missing"
	ValidationKind    ValidationCode = "kind"
	ValidationInvalid ValidationCode = "invalid"
)

// ValidationError describes one property that does not satisfy its schema.
type ValidationError struct {
	Namespace string
	Property  string
	Code      ValidationCode
	Message   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", xmp.QName{Space: e.Namespace, Local: e.Property}, e.Code, e.Message)
}

// Validate checks doc against the registered schemas and returns every
// failure, ordered by namespace and property. Properties of unregistered
// namespaces and unknown properties of registered ones are accepted.
//
// Required properties are only enforced for schemas the document uses.
func (r *Registry) Validate(doc *xmp.Document) []ValidationError {
	snap := r.load()
	var errs []ValidationError

	used := make(map[string]bool)
	for q, v := range doc.Properties {
		used[q.Space] = true
		sc, ok := snap.schemas[q.Space]
		if !ok {
			continue
		}
		p, ok := sc.Properties[q.Local]
		if !ok {
			continue
		}
		if e, bad := checkProperty(q, p, v); bad {
			errs = append(errs, e)
		}
	}

	for ns := range used {
		sc, ok := snap.schemas[ns]
		if !ok {
			continue
		}
		for name, p := range sc.Properties {
			if !p.Required {
				continue
			}
			if _, present := doc.Properties[xmp.QName{Space: ns, Local: name}]; !present {
				errs = append(errs, ValidationError{
					Namespace: ns,
					Property:  name,
					Code:      ValidationMissing,
					Message:   "required property is missing",
				})
			}
		}
	}

	slices.SortFunc(errs, func(a, b ValidationError) int {
		if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return strings.Compare(a.Property, b.Property)
	})
	return errs
}

func checkProperty(q xmp.QName, p Property, v xmp.Value) (ValidationError, bool) {
	fail := func(code ValidationCode, format string, args ...any) (ValidationError, bool) {
		return ValidationError{
			Namespace: q.Space,
			Property:  q.Local,
			Code:      code,
			Message:   fmt.Sprintf(format, args...),
		}, true
	}

	if v == nil {
		return fail(ValidationKind, "expected %s, got no value", p.Kind)
	}
	if !kindAccepts(p.Kind, v) {
		return fail(ValidationKind, "expected %s, got %s", p.Kind, v.Kind())
	}
	if arr, ok := v.(xmp.Array); ok {
		if arr.Form != p.Form {
			return fail(ValidationKind, "expected rdf:%s, got rdf:%s", p.Form, arr.Form)
		}
		for i, item := range arr.Items {
			if item == nil {
				return fail(ValidationKind, "item %d: expected %s, got no value", i, p.ItemKind)
			}
			if !kindAccepts(p.ItemKind, item) {
				return fail(ValidationKind, "item %d: expected %s, got %s", i, p.ItemKind, item.Kind())
			}
			if p.Validate != nil {
				if err := runValidator(p.Validate, item); err != nil {
					return fail(ValidationInvalid, "item %d: %v", i, err)
				}
			}
		}
		return ValidationError{}, false
	}
	if p.Validate != nil {
		if err := runValidator(p.Validate, v); err != nil {
			return fail(ValidationInvalid, "%v", err)
		}
	}
	return ValidationError{}, false
}

// runValidator calls a caller-supplied validator, reporting a panic as a
// failure.
func runValidator(validate Validator, v xmp.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panicked: %v", r)
		}
	}()
	return validate(v)
}

// kindAccepts allows an Integer where a Real is declared; every other kind
// must match exactly.
func kindAccepts(want xmp.Kind, v xmp.Value) bool {
	got := v.Kind()
	if got == want {
		return true
	}
	return want == xmp.KindReal && got == xmp.KindInteger
}
