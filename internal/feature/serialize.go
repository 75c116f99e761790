package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/ordered"
)

// Feature-list files use a fixed layout: the document is pretty-indented but
// every package entry stays on a single line, keeping diffs one-package-wide.

// WriteFile serializes a feature list to path.
func WriteFile(fl *FeatureList, path string) error {
	bs, err := Marshal(fl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0o644)
}

// Marshal renders the feature-list document.
func Marshal(fl *FeatureList) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	names := fl.Names()
	for i, name := range names {
		f, _ := fl.Get(name)

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "  %s: {\n", key)
		buf.WriteString("    \"packages\": [\n")

		for j, pkg := range f.Packages {
			buf.WriteString("      ")
			if err := appendPackage(&buf, pkg, true); err != nil {
				return nil, err
			}
			if j < len(f.Packages)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}

		buf.WriteString("    ]\n")
		buf.WriteString("  }")
		if i < len(names)-1 {
			buf.WriteString(",\n")
		} else {
			buf.WriteByte('\n')
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// appendPackage writes one single-line package object. Field order is fixed:
// package, type, repo_name, uri, tag, architecture. Empty optional fields
// are omitted; architecture only when withArch is set.
func appendPackage(buf *bytes.Buffer, p Package, withArch bool) error {
	doc := PackageDoc(p, withArch)
	bs, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	buf.Write(bs)
	return nil
}

// PackageDoc converts a package into its ordered output representation.
func PackageDoc(p Package, withArch bool) *ordered.Object {
	doc := ordered.NewObject()
	doc.Set("package", p.Name)
	doc.Set("type", p.Type)
	if p.RepoName != "" {
		doc.Set("repo_name", p.RepoName)
	}
	if p.URI != nil {
		doc.Set("uri", *p.URI)
	}
	if p.Tag != "" {
		doc.Set("tag", p.Tag)
	}
	if withArch {
		arch := make([]any, len(p.Architecture))
		for i, a := range p.Architecture {
			arch[i] = a
		}
		doc.Set("architecture", arch)
	}
	return doc
}

// ReadFile deserializes a feature-list file, preserving role order.
func ReadFile(path string) (*FeatureList, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &errs.NotFoundError{Path: path}
		}
		return nil, err
	}
	return Unmarshal(bs, path)
}

// Unmarshal parses a feature-list document. Unknown package fields are
// ignored; a role without a "packages" array is read as empty.
func Unmarshal(bs []byte, path string) (*FeatureList, error) {
	doc := ordered.NewObject()
	if err := doc.UnmarshalJSON(bs); err != nil {
		return nil, &errs.ProcessingError{Op: "parse feature list " + path, Err: err}
	}

	fl := NewFeatureList()
	for _, name := range doc.Keys() {
		body, _ := doc.Get(name)
		bodyObj, ok := body.(*ordered.Object)
		if !ok {
			return nil, errs.Processingf("feature %q in %s is not an object", name, path)
		}

		f := &Feature{Name: name}
		if raw, ok := bodyObj.Get("packages"); ok {
			items, ok := raw.([]any)
			if !ok {
				return nil, errs.Processingf("packages of feature %q in %s is not an array", name, path)
			}
			for _, item := range items {
				pkgObj, ok := item.(*ordered.Object)
				if !ok {
					return nil, errs.Processingf("package entry of feature %q in %s is not an object", name, path)
				}
				f.Packages = append(f.Packages, packageFromDoc(pkgObj))
			}
		}
		fl.Set(f)
	}
	return fl, nil
}

func packageFromDoc(doc *ordered.Object) Package {
	p := Package{
		Name:     stringField(doc, "package"),
		Type:     stringField(doc, "type"),
		RepoName: stringField(doc, "repo_name"),
		Tag:      stringField(doc, "tag"),
	}
	if v, ok := doc.Get("uri"); ok {
		if s, ok := v.(string); ok {
			p.URI = &s
		}
	}
	if v, ok := doc.Get("architecture"); ok {
		if items, ok := v.([]any); ok {
			for _, item := range items {
				if s, ok := item.(string); ok {
					p.Architecture = append(p.Architecture, s)
				}
			}
		}
	}
	return p
}

func stringField(doc *ordered.Object, key string) string {
	if v, ok := doc.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
