// Package policy implements the declarative configuration engine: a
// versioned, schema-validated policy document describes how role documents
// from an input tree are pulled, filtered, transformed and reduced into
// target configuration files.
package policy

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/ordered"
	"github.com/clusterforge/catconf/internal/schemadoc"
)

// Policy is a parsed policy document. Targets preserve document order so
// output files are produced deterministically.
type Policy struct {
	Version string
	Targets []*Target
}

// Target describes the construction of one output file.
type Target struct {
	File       string      `json:"-"`
	Conditions *Conditions `json:"conditions"`
	Transform  *Transform  `json:"transform"`
	Sources    []Source    `json:"sources"`
	Derived    []Derived   `json:"derived"`
}

// Conditions are per-dimension allow-lists. A nil slice means the dimension
// is unconstrained; a present-but-empty list matches nothing.
type Conditions struct {
	Architectures []string `json:"architectures"`
	OSFamilies    []string `json:"os_families"`
	OSVersions    []string `json:"os_versions"`
}

// Match reports whether a combination satisfies the conditions.
func (c *Conditions) Match(arch, osFamily, osVersion string) bool {
	if c == nil {
		return true
	}
	if c.Architectures != nil && !slices.Contains(c.Architectures, arch) {
		return false
	}
	if c.OSFamilies != nil && !slices.Contains(c.OSFamilies, osFamily) {
		return false
	}
	if c.OSVersions != nil && !slices.Contains(c.OSVersions, osVersion) {
		return false
	}
	return true
}

// Source names one input file and the pulls applied to it. The schema tags
// feed ReflectSchema, which generates the embedded policy schema from these
// types.
type Source struct {
	SourceFile string `json:"source_file" required:"true"`
	Pulls      []Pull `json:"pulls" required:"true"`
}

// Pull copies one role out of a source document. TargetKey defaults to
// SourceKey when empty.
type Pull struct {
	SourceKey string     `json:"source_key" required:"true"`
	TargetKey string     `json:"target_key"`
	Filter    *Filter    `json:"filter"`
	Transform *Transform `json:"transform"`
}

// Derived adds a role computed from already-pulled target roles.
type Derived struct {
	TargetKey string    `json:"target_key" required:"true"`
	Operation Operation `json:"operation" required:"true"`
}

// Operation is the derived-role computation. Only "extract_common" is
// supported; unknown types are skipped with a warning.
type Operation struct {
	Type              string   `json:"type" required:"true"`
	FromKeys          []string `json:"from_keys" required:"true"`
	MinOccurrences    *int     `json:"min_occurrences" minimum:"1"`
	RemoveFromSources *bool    `json:"remove_from_sources"`
}

const OpExtractCommon = "extract_common"

func (o Operation) minOccurrences() int {
	if o.MinOccurrences == nil {
		return 2
	}
	return *o.MinOccurrences
}

func (o Operation) removeFromSources() bool {
	if o.RemoveFromSources == nil {
		return true
	}
	return *o.RemoveFromSources
}

// policyDoc is the raw wire shape. Targets are decoded twice: once into the
// map for content and once as a key scan for document order.
type policyDoc struct {
	Version string          `json:"version" required:"true"`
	Targets json.RawMessage `json:"targets" required:"true"`
}

// Load reads, validates and decodes a policy document. An empty policyPath
// selects the embedded default policy. YAML documents (.yaml/.yml) are
// converted to JSON before validation so one schema covers both encodings.
// Validation failures abort with a SchemaError before any output is written.
func Load(policyPath, schemaPath string, log *logging.Logger) (*Policy, error) {
	var bs []byte
	if policyPath == "" {
		bs = DefaultPolicy()
		policyPath = embeddedPolicyName
	} else {
		var err error
		bs, err = os.ReadFile(policyPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Errorf("policy file not found: %s", policyPath)
				return nil, &errs.NotFoundError{Path: policyPath}
			}
			return nil, err
		}

		switch filepath.Ext(policyPath) {
		case ".yaml", ".yml":
			bs, err = yaml.YAMLToJSON(bs)
			if err != nil {
				return nil, &errs.ProcessingError{Op: "convert policy " + policyPath + " to JSON", Err: err}
			}
		}
	}

	sch, schemaName, err := policySchema(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := schemadoc.Validate(sch, bs, policyPath, schemaName); err != nil {
		log.Errorf("policy validation failed for %s", policyPath)
		return nil, err
	}
	log.Debugf("policy %s validated against %s", policyPath, schemaName)

	return parse(bs, policyPath)
}

func parse(bs []byte, path string) (*Policy, error) {
	var doc policyDoc
	if err := json.Unmarshal(bs, &doc); err != nil {
		return nil, &errs.ProcessingError{Op: "parse policy " + path, Err: err}
	}

	p := &Policy{Version: doc.Version}
	if len(doc.Targets) == 0 {
		return p, nil
	}

	order, err := ordered.ObjectKeys(doc.Targets)
	if err != nil {
		return nil, &errs.ProcessingError{Op: "parse policy targets in " + path, Err: err}
	}
	byFile := map[string]*Target{}
	if err := json.Unmarshal(doc.Targets, &byFile); err != nil {
		return nil, &errs.ProcessingError{Op: "parse policy targets in " + path, Err: err}
	}

	for _, file := range order {
		t := byFile[file]
		if t == nil {
			t = &Target{}
		}
		t.File = file
		p.Targets = append(p.Targets, t)
	}
	return p, nil
}
