package policy

import (
	"sort"

	"github.com/clusterforge/catconf/internal/ordered"
)

// Transform reshapes package objects. Nil fields mean "not specified", which
// matters for merging: a pull-level transform overrides the target-level one
// field-by-field, not entry-by-entry.
type Transform struct {
	ExcludeFields []string          `json:"exclude_fields"`
	RenameFields  map[string]string `json:"rename_fields"`
}

// merge combines a target-level base with a pull-level override; override
// fields win when both are present.
func (t *Transform) merge(override *Transform) *Transform {
	if t == nil {
		return override
	}
	if override == nil {
		return t
	}
	merged := &Transform{ExcludeFields: t.ExcludeFields, RenameFields: t.RenameFields}
	if override.ExcludeFields != nil {
		merged.ExcludeFields = override.ExcludeFields
	}
	if override.RenameFields != nil {
		merged.RenameFields = override.RenameFields
	}
	return merged
}

// Apply returns a transformed copy of the package: excluded fields removed,
// then renames applied in sorted old-name order so output is deterministic.
// A renamed field keeps the new name's existing position when the new name
// is already present, otherwise it is appended.
func (t *Transform) Apply(pkg *ordered.Object) *ordered.Object {
	result := pkg.Clone()
	if t == nil {
		return result
	}

	for _, field := range t.ExcludeFields {
		result.Delete(field)
	}

	oldNames := make([]string, 0, len(t.RenameFields))
	for old := range t.RenameFields {
		oldNames = append(oldNames, old)
	}
	sort.Strings(oldNames)

	for _, old := range oldNames {
		v, ok := result.Get(old)
		if !ok {
			continue
		}
		result.Delete(old)
		result.Set(t.RenameFields[old], v)
	}
	return result
}
