package catalog

import (
	"path/filepath"
	"slices"
	"strings"
)

// Combination is one (architecture, OS family, OS version) triple. It is the
// unit of output fan-out: every combination gets its own directory.
type Combination struct {
	Architecture string
	OSFamily     string // lowercased
	OSVersion    string
}

func (c Combination) String() string {
	return c.Architecture + "/" + c.OSFamily + "/" + c.OSVersion
}

// Dir returns the combination's directory under root. Directory layout is a
// contract with downstream consumers, not an implementation detail.
func (c Combination) Dir(root string) string {
	return filepath.Join(root, c.Architecture, c.OSFamily, c.OSVersion)
}

func (c Combination) compare(o Combination) int {
	if r := strings.Compare(c.Architecture, o.Architecture); r != 0 {
		return r
	}
	if r := strings.Compare(c.OSFamily, o.OSFamily); r != 0 {
		return r
	}
	return strings.Compare(c.OSVersion, o.OSVersion)
}

// DiscoverCombinations enumerates the distinct combinations present in the
// catalog's functional and OS packages. Every supported-OS string is split
// into (family, version) on the first space, the family lowercased, and the
// pair crossed with the package's architecture list. The result is
// deduplicated and sorted ascending by (architecture, family, version).
func DiscoverCombinations(c *Catalog) []Combination {
	seen := map[Combination]struct{}{}

	add := func(pkgs []Package) {
		for _, pkg := range pkgs {
			for _, entry := range pkg.SupportedOS {
				family, version, found := strings.Cut(entry, " ")
				if !found {
					version = ""
				}
				family = strings.ToLower(family)
				for _, arch := range pkg.Architecture {
					seen[Combination{Architecture: arch, OSFamily: family, OSVersion: version}] = struct{}{}
				}
			}
		}
	}

	add(c.FunctionalPackages)
	add(c.OSPackages)

	combos := make([]Combination, 0, len(seen))
	for combo := range seen {
		combos = append(combos, combo)
	}
	slices.SortFunc(combos, Combination.compare)
	return combos
}
