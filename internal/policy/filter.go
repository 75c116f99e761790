package policy

import (
	"encoding/json"
	"strings"

	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/ordered"
)

// Filter is a tagged package predicate. The type set is open: an unknown
// type passes every package through with a warning rather than failing the
// run, so newer policies degrade gracefully on older binaries.
type Filter struct {
	Type          string    `json:"type" required:"true"`
	Field         string    `json:"field"`
	Values        []string  `json:"values"`
	CaseSensitive bool      `json:"case_sensitive"`
	Filters       []*Filter `json:"filters"`
}

const (
	FilterSubstring = "substring"
	FilterAllowlist = "allowlist"
	FilterFieldIn   = "field_in"
	FilterAnyOf     = "any_of"
)

// Apply evaluates the filter over a package list. A nil filter is the
// identity. Filters never mutate their input.
func (f *Filter) Apply(packages []*ordered.Object, log *logging.Logger) []*ordered.Object {
	if f == nil {
		return packages
	}

	switch f.Type {
	case FilterSubstring:
		return f.substring(packages)
	case FilterAllowlist:
		return f.allowlist(packages)
	case FilterFieldIn:
		return f.fieldIn(packages)
	case FilterAnyOf:
		return f.anyOf(packages, log)
	default:
		log.Warnf("unknown filter type %q, passing packages through", f.Type)
		return packages
	}
}

func (f *Filter) field() string {
	if f.Field == "" {
		return "package"
	}
	return f.Field
}

// substring keeps packages whose field value contains any configured
// substring. An empty value list is the identity filter.
func (f *Filter) substring(packages []*ordered.Object) []*ordered.Object {
	if len(f.Values) == 0 {
		return packages
	}

	var kept []*ordered.Object
	for _, pkg := range packages {
		value := stringValue(pkg, f.field())
		if !f.CaseSensitive {
			value = strings.ToLower(value)
		}
		for _, v := range f.Values {
			if !f.CaseSensitive {
				v = strings.ToLower(v)
			}
			if strings.Contains(value, v) {
				kept = append(kept, pkg)
				break
			}
		}
	}
	return kept
}

// allowlist keeps packages whose field value exactly equals one of the
// configured values.
func (f *Filter) allowlist(packages []*ordered.Object) []*ordered.Object {
	if len(f.Values) == 0 {
		return packages
	}
	allowed := f.allowedSet()

	var kept []*ordered.Object
	for _, pkg := range packages {
		raw, ok := pkg.Get(f.field())
		if !ok || raw == nil {
			continue
		}
		if _, ok := allowed[f.fold(stringify(raw))]; ok {
			kept = append(kept, pkg)
		}
	}
	return kept
}

// fieldIn keeps packages whose field, scalar or list, intersects the
// configured value set.
func (f *Filter) fieldIn(packages []*ordered.Object) []*ordered.Object {
	if f.Field == "" || len(f.Values) == 0 {
		return packages
	}
	allowed := f.allowedSet()

	var kept []*ordered.Object
	for _, pkg := range packages {
		raw, ok := pkg.Get(f.Field)
		if !ok || raw == nil {
			continue
		}

		match := false
		if items, isList := raw.([]any); isList {
			for _, item := range items {
				if _, ok := allowed[f.fold(stringify(item))]; ok {
					match = true
					break
				}
			}
		} else if _, ok := allowed[f.fold(stringify(raw))]; ok {
			match = true
		}
		if match {
			kept = append(kept, pkg)
		}
	}
	return kept
}

// anyOf keeps packages matched by at least one sub-filter, short-circuiting
// on the first match.
func (f *Filter) anyOf(packages []*ordered.Object, log *logging.Logger) []*ordered.Object {
	if len(f.Filters) == 0 {
		return packages
	}

	var kept []*ordered.Object
	for _, pkg := range packages {
		for _, sub := range f.Filters {
			if len(sub.Apply([]*ordered.Object{pkg}, log)) > 0 {
				kept = append(kept, pkg)
				break
			}
		}
	}
	return kept
}

func (f *Filter) fold(s string) string {
	if f.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func (f *Filter) allowedSet() map[string]struct{} {
	allowed := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		allowed[f.fold(v)] = struct{}{}
	}
	return allowed
}

func stringValue(pkg *ordered.Object, field string) string {
	raw, ok := pkg.Get(field)
	if !ok || raw == nil {
		return ""
	}
	return stringify(raw)
}

// stringify renders a decoded JSON value for comparison purposes.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		bs, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(bs)
	}
}
