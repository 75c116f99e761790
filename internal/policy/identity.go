package policy

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/clusterforge/catconf/internal/ordered"
)

// identityKey computes the package identity used by derived operations:
// every field except architecture, with nested values canonicalized under
// sorted keys. Two packages differing only in architecture are the same
// package; tarballs without a repo_name still get distinct keys when their
// uris differ. This deliberately differs from the (name, type, repo_name)
// key of the fixed-rule adapter.
func identityKey(pkg *ordered.Object) string {
	keys := make([]string, 0, pkg.Len())
	for _, k := range pkg.Keys() {
		if k != "architecture" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v, _ := pkg.Get(k)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonical(v))
	}
	return b.String()
}

// canonical renders a decoded JSON value with object keys sorted, so that
// structurally equal values always produce the same string.
func canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case *ordered.Object:
		keys := append([]string(nil), t.Keys()...)
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(canonical(k))
			b.WriteByte(':')
			val, _ := t.Get(k)
			b.WriteString(canonical(val))
		}
		b.WriteByte('}')
		return b.String()
	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(canonical(item))
		}
		b.WriteByte(']')
		return b.String()
	case json.Number:
		return t.String()
	default:
		bs, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(bs)
	}
}
