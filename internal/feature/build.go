package feature

import (
	"github.com/clusterforge/catconf/internal/catalog"
	"github.com/clusterforge/catconf/internal/logging"
)

// The builders below resolve package ids declared by catalog groups against
// the catalog's package tables. An id with no resolvable entry is omitted
// from the feature; this is a documented non-fatal contract that tolerates
// partially-inconsistent catalogs.

// FunctionalLayer builds one feature per functional-layer group.
func FunctionalLayer(c *catalog.Catalog, log *logging.Logger) *FeatureList {
	fl := NewFeatureList()
	for _, layer := range c.FunctionalLayer {
		f := &Feature{Name: layer.Name}
		for _, id := range layer.PackageIDs {
			pkg := c.FunctionalPackage(id)
			if pkg == nil {
				log.Debugf("functional package id %q not found, omitted from feature %q", id, layer.Name)
				continue
			}
			f.Packages = append(f.Packages, fromCatalogPackage(pkg))
		}
		fl.Set(f)
	}
	return fl
}

// Infrastructure builds one feature per infrastructure entry.
func Infrastructure(c *catalog.Catalog, log *logging.Logger) *FeatureList {
	fl := NewFeatureList()
	for _, infra := range c.Infrastructure {
		f := &Feature{Name: infra.Name}
		for _, id := range infra.PackageIDs {
			pkg := c.InfrastructurePackageByID(id)
			if pkg == nil {
				log.Debugf("infrastructure package id %q not found, omitted from feature %q", id, infra.Name)
				continue
			}
			f.Packages = append(f.Packages, Package{
				Name:         pkg.Name,
				Type:         pkg.Type,
				Architecture: pkg.Architecture,
				Tag:          pkg.Tag,
				Sources:      pkg.Sources,
			})
		}
		fl.Set(f)
	}
	return fl
}

// Drivers builds one feature per driver group. When the catalog declares no
// driver grouping, all drivers fall back into a single "Drivers" feature for
// backward compatibility.
func Drivers(c *catalog.Catalog, log *logging.Logger) *FeatureList {
	fl := NewFeatureList()

	if len(c.DriversLayer) == 0 {
		f := &Feature{Name: "Drivers"}
		for i := range c.Drivers {
			f.Packages = append(f.Packages, fromDriver(&c.Drivers[i]))
		}
		fl.Set(f)
		return fl
	}

	for _, group := range c.DriversLayer {
		if group.Name == "" || len(group.PackageIDs) == 0 {
			continue
		}
		f := &Feature{Name: group.Name}
		for _, id := range group.PackageIDs {
			drv := c.DriverByID(id)
			if drv == nil {
				log.Debugf("driver id %q not found, omitted from feature %q", id, group.Name)
				continue
			}
			f.Packages = append(f.Packages, fromDriver(drv))
		}
		fl.Set(f)
	}
	return fl
}

// BaseOS aggregates every base-OS entry's referenced OS packages into a
// single synthetic "Base OS" feature.
func BaseOS(c *catalog.Catalog, log *logging.Logger) *FeatureList {
	fl := NewFeatureList()
	f := &Feature{Name: "Base OS"}
	for _, entry := range c.BaseOS {
		for _, id := range entry.PackageIDs {
			pkg := c.OSPackage(id)
			if pkg == nil {
				log.Debugf("OS package id %q not found, omitted from Base OS", id)
				continue
			}
			f.Packages = append(f.Packages, fromCatalogPackage(pkg))
		}
	}
	fl.Set(f)
	return fl
}

// Miscellaneous builds a single feature from the catalog's explicit id list,
// resolved against the functional-package table.
func Miscellaneous(c *catalog.Catalog, log *logging.Logger) *FeatureList {
	fl := NewFeatureList()
	f := &Feature{Name: "Miscellaneous"}
	for _, id := range c.Miscellaneous {
		pkg := c.FunctionalPackage(id)
		if pkg == nil {
			log.Debugf("miscellaneous package id %q not found, omitted", id)
			continue
		}
		f.Packages = append(f.Packages, fromCatalogPackage(pkg))
	}
	fl.Set(f)
	return fl
}

func fromCatalogPackage(pkg *catalog.Package) Package {
	var uri *string
	if pkg.URI != "" {
		u := pkg.URI
		uri = &u
	}
	return Package{
		Name:         pkg.Name,
		Type:         pkg.Type,
		Architecture: pkg.Architecture,
		URI:          uri,
		Tag:          pkg.Tag,
		Sources:      pkg.Sources,
	}
}

func fromDriver(drv *catalog.Driver) Package {
	return Package{
		Name:         drv.Name,
		Type:         drv.Type,
		Architecture: drv.Architecture,
	}
}
