// Package clusterfile writes generated configuration documents of the shape
// {"<role>": {"cluster": [packageObject, ...]}}. Both the fixed-rule adapter
// and the policy engine emit this format.
package clusterfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clusterforge/catconf/internal/ordered"
)

// Doc is an ordered role -> cluster mapping. Replacing an existing role
// keeps its position, which gives pull overwrites last-write-wins content
// with stable placement.
type Doc struct {
	keys  []string
	roles map[string][]*ordered.Object
}

func NewDoc() *Doc {
	return &Doc{roles: map[string][]*ordered.Object{}}
}

func (d *Doc) Set(role string, cluster []*ordered.Object) {
	if _, ok := d.roles[role]; !ok {
		d.keys = append(d.keys, role)
	}
	d.roles[role] = cluster
}

func (d *Doc) Get(role string) ([]*ordered.Object, bool) {
	cluster, ok := d.roles[role]
	return cluster, ok
}

func (d *Doc) Len() int { return len(d.keys) }

// Roles returns role names in insertion order.
func (d *Doc) Roles() []string { return d.keys }

// NonEmpty reports whether at least one role has a non-empty cluster.
func (d *Doc) NonEmpty() bool {
	for _, cluster := range d.roles {
		if len(cluster) > 0 {
			return true
		}
	}
	return false
}

// Marshal renders the document: pretty-indented overall, each package object
// on a single line.
func (d *Doc) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	for i, role := range d.keys {
		key, err := json.Marshal(role)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "  %s: {\n", key)
		buf.WriteString("    \"cluster\": [\n")

		cluster := d.roles[role]
		for j, pkg := range cluster {
			bs, err := pkg.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.WriteString("      ")
			buf.Write(bs)
			if j < len(cluster)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}

		buf.WriteString("    ]\n")
		buf.WriteString("  }")
		if i < len(d.keys)-1 {
			buf.WriteString(",\n")
		} else {
			buf.WriteByte('\n')
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// WriteFile writes the document to path, creating parent directories on
// demand.
func WriteFile(path string, d *Doc) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bs, err := d.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0o644)
}
