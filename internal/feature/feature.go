// Package feature models role -> package collections (feature lists), the
// intermediate documents between the catalog and the generated configs.
package feature

import (
	"iter"
	"slices"

	"github.com/clusterforge/catconf/internal/catalog"
)

// Package is one package entry inside a feature list. Name maps to the
// "package" JSON field. RepoName, URI and Tag are optional: empty RepoName
// and Tag and nil URI are omitted from output.
type Package struct {
	Name         string
	Type         string
	RepoName     string
	Architecture []string
	URI          *string
	Tag          string

	// Sources carries the catalog's per-architecture source records through
	// to arch partitioning; it is never serialized.
	Sources []catalog.SourceRecord
}

// Feature is a named role with an ordered package list.
type Feature struct {
	Name     string
	Packages []Package
}

// FeatureList maps role names to features. Insertion order is significant:
// it drives the order of roles in generated documents.
type FeatureList struct {
	names    []string
	features map[string]*Feature
}

func NewFeatureList() *FeatureList {
	return &FeatureList{features: map[string]*Feature{}}
}

// Set inserts or replaces a feature, keeping the original position on
// replace.
func (fl *FeatureList) Set(f *Feature) {
	if _, ok := fl.features[f.Name]; !ok {
		fl.names = append(fl.names, f.Name)
	}
	fl.features[f.Name] = f
}

func (fl *FeatureList) Get(name string) (*Feature, bool) {
	f, ok := fl.features[name]
	return f, ok
}

func (fl *FeatureList) Len() int { return len(fl.names) }

// Names returns role names in insertion order.
func (fl *FeatureList) Names() []string {
	return slices.Clone(fl.names)
}

// All iterates features in insertion order.
func (fl *FeatureList) All() iter.Seq2[string, *Feature] {
	return func(yield func(string, *Feature) bool) {
		for _, name := range fl.names {
			if !yield(name, fl.features[name]) {
				return
			}
		}
	}
}

// ForArchitecture returns a new feature list restricted to packages whose
// architecture list contains arch. Retained packages have their repo name
// and URI re-derived from the matching per-architecture source record when
// one exists, and their architecture list narrowed to [arch]. Features with
// no matching packages are kept with an empty package list.
func (fl *FeatureList) ForArchitecture(arch string) *FeatureList {
	out := NewFeatureList()
	for name, f := range fl.All() {
		narrowed := &Feature{Name: name}
		for _, p := range f.Packages {
			if !slices.Contains(p.Architecture, arch) {
				continue
			}

			repoName := ""
			uri := p.URI
			for _, src := range p.Sources {
				if src.Architecture != arch {
					continue
				}
				if src.RepoName != "" {
					repoName = src.RepoName
				}
				if src.URI != nil {
					u := *src.URI
					uri = &u
				}
				break
			}

			narrowed.Packages = append(narrowed.Packages, Package{
				Name:         p.Name,
				Type:         p.Type,
				RepoName:     repoName,
				Architecture: []string{arch},
				URI:          uri,
				Tag:          p.Tag,
				Sources:      p.Sources,
			})
		}
		out.Set(narrowed)
	}
	return out
}
