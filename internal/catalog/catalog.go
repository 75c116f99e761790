// Package catalog holds the typed representation of the input catalog and
// its schema-validated loader. A catalog is parsed once per run and treated
// as immutable afterwards.
package catalog

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/schemadoc"
)

// SourceRecord is a per-architecture source entry of a package. An empty
// RepoName means the record does not set one. URI is a pointer because the
// catalog distinguishes an absent Uri key from an explicitly empty one: a
// record that sets Uri, even to "", overrides the package-level default.
type SourceRecord struct {
	Architecture string
	RepoName     string
	URI          *string
}

// Package is a functional or base-OS package entry.
type Package struct {
	ID           string
	Name         string
	Version      string
	SupportedOS  []string // "<Family> <Version>" strings
	URI          string
	Architecture []string
	Type         string
	Tag          string
	Sources      []SourceRecord
}

// InfrastructurePackage describes an infrastructure component. Its
// architecture list is empty by catalog convention.
type InfrastructurePackage struct {
	ID           string
	Name         string
	Version      string
	URI          string
	Architecture []string
	Config       any
	Type         string
	Tag          string
	Sources      []SourceRecord
}

// Driver is a driver package entry.
type Driver struct {
	ID           string
	Name         string
	Version      string
	URI          string
	Architecture []string
	Config       any
	Type         string
}

// Group references packages by id under a functional-layer, infrastructure
// or driver group name.
type Group struct {
	Name       string
	PackageIDs []string
}

// BaseOSEntry references OS packages by id.
type BaseOSEntry struct {
	Name       string
	PackageIDs []string
}

// Catalog is the in-memory representation of the catalog document.
type Catalog struct {
	Name                   string
	Version                string
	FunctionalLayer        []Group
	BaseOS                 []BaseOSEntry
	Infrastructure         []Group
	DriversLayer           []Group
	Drivers                []Driver
	FunctionalPackages     []Package
	OSPackages             []Package
	InfrastructurePackages []InfrastructurePackage
	Miscellaneous          []string
}

// FunctionalPackage returns the functional package with the given id, or nil.
func (c *Catalog) FunctionalPackage(id string) *Package {
	return packageByID(c.FunctionalPackages, id)
}

// OSPackage returns the OS package with the given id, or nil.
func (c *Catalog) OSPackage(id string) *Package {
	return packageByID(c.OSPackages, id)
}

// InfrastructurePackageByID returns the infrastructure package with the
// given id, or nil.
func (c *Catalog) InfrastructurePackageByID(id string) *InfrastructurePackage {
	for i := range c.InfrastructurePackages {
		if c.InfrastructurePackages[i].ID == id {
			return &c.InfrastructurePackages[i]
		}
	}
	return nil
}

// DriverByID returns the driver with the given id, or nil.
func (c *Catalog) DriverByID(id string) *Driver {
	for i := range c.Drivers {
		if c.Drivers[i].ID == id {
			return &c.Drivers[i]
		}
	}
	return nil
}

func packageByID(pkgs []Package, id string) *Package {
	for i := range pkgs {
		if pkgs[i].ID == id {
			return &pkgs[i]
		}
	}
	return nil
}

// Raw document shapes. Only the loader sees these.

type rawSupportedOS struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

type rawSource struct {
	Architecture string  `json:"Architecture"`
	RepoName     string  `json:"RepoName"`
	URI          *string `json:"Uri"`
}

type rawPackage struct {
	Name         string           `json:"Name"`
	Version      string           `json:"Version"`
	SupportedOS  []rawSupportedOS `json:"SupportedOS"`
	Type         string           `json:"Type"`
	URI          string           `json:"Uri"`
	Architecture []string         `json:"Architecture"`
	Tag          string           `json:"Tag"`
	Sources      []rawSource      `json:"Sources"`
}

type rawInfrastructurePackage struct {
	Name               string `json:"Name"`
	Version            string `json:"Version"`
	Type               string `json:"Type"`
	Tag                string `json:"Tag"`
	SupportedFunctions any    `json:"SupportedFunctions"`
}

type rawDriver struct {
	Name         string   `json:"Name"`
	Version      string   `json:"Version"`
	URI          string   `json:"Uri"`
	Architecture []string `json:"Architecture"`
	Config       any      `json:"Config"`
	Type         string   `json:"Type"`
}

type rawCatalog struct {
	Catalog struct {
		Name            string `json:"Name"`
		Version         string `json:"Version"`
		FunctionalLayer []struct {
			Name               string   `json:"Name"`
			FunctionalPackages []string `json:"FunctionalPackages"`
		} `json:"FunctionalLayer"`
		BaseOS []struct {
			Name       string   `json:"Name"`
			OSPackages []string `json:"osPackages"`
		} `json:"BaseOS"`
		Infrastructure []struct {
			Name                   string   `json:"Name"`
			InfrastructurePackages []string `json:"InfrastructurePackages"`
		} `json:"Infrastructure"`
		Drivers []struct {
			Name           string   `json:"Name"`
			DriverPackages []string `json:"DriverPackages"`
		} `json:"Drivers"`
		FunctionalPackages     map[string]rawPackage               `json:"FunctionalPackages"`
		OSPackages             map[string]rawPackage               `json:"OSPackages"`
		InfrastructurePackages map[string]rawInfrastructurePackage `json:"InfrastructurePackages"`
		DriverPackages         map[string]rawDriver                `json:"DriverPackages"`
		Miscellaneous          []string                            `json:"Miscellaneous"`
	} `json:"Catalog"`
}

// ParseFile loads, validates and decodes a catalog document. schemaPath
// selects an on-disk schema; empty means the embedded default. On a schema
// violation no partial catalog is returned.
func ParseFile(path, schemaPath string, log *logging.Logger) (*Catalog, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Errorf("catalog file not found: %s", path)
			return nil, &errs.NotFoundError{Path: path}
		}
		return nil, err
	}

	sch, schemaName, err := catalogSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := schemadoc.Validate(sch, bs, path, schemaName); err != nil {
		log.Errorf("catalog validation failed for %s", path)
		return nil, err
	}
	log.Debugf("catalog %s validated against %s", path, schemaName)

	var raw rawCatalog
	if err := json.Unmarshal(bs, &raw); err != nil {
		return nil, &errs.ProcessingError{Op: "decode catalog " + path, Err: err}
	}

	return fromRaw(&raw), nil
}

func fromRaw(raw *rawCatalog) *Catalog {
	data := &raw.Catalog

	c := &Catalog{
		Name:          data.Name,
		Version:       data.Version,
		Miscellaneous: data.Miscellaneous,
	}

	for _, layer := range data.FunctionalLayer {
		c.FunctionalLayer = append(c.FunctionalLayer, Group{Name: layer.Name, PackageIDs: layer.FunctionalPackages})
	}
	for _, entry := range data.BaseOS {
		c.BaseOS = append(c.BaseOS, BaseOSEntry{Name: entry.Name, PackageIDs: entry.OSPackages})
	}
	for _, infra := range data.Infrastructure {
		c.Infrastructure = append(c.Infrastructure, Group{Name: infra.Name, PackageIDs: infra.InfrastructurePackages})
	}
	for _, group := range data.Drivers {
		c.DriversLayer = append(c.DriversLayer, Group{Name: group.Name, PackageIDs: group.DriverPackages})
	}

	for id, pkg := range data.FunctionalPackages {
		c.FunctionalPackages = append(c.FunctionalPackages, packageFromRaw(id, pkg))
	}
	for id, pkg := range data.OSPackages {
		c.OSPackages = append(c.OSPackages, packageFromRaw(id, pkg))
	}
	for id, pkg := range data.InfrastructurePackages {
		c.InfrastructurePackages = append(c.InfrastructurePackages, InfrastructurePackage{
			ID:           id,
			Name:         pkg.Name,
			Version:      pkg.Version,
			Architecture: []string{},
			Config:       pkg.SupportedFunctions,
			Type:         pkg.Type,
			Tag:          pkg.Tag,
		})
	}
	for id, drv := range data.DriverPackages {
		c.Drivers = append(c.Drivers, Driver{
			ID:           id,
			Name:         drv.Name,
			Version:      drv.Version,
			URI:          drv.URI,
			Architecture: drv.Architecture,
			Config:       drv.Config,
			Type:         drv.Type,
		})
	}

	return c
}

func packageFromRaw(id string, pkg rawPackage) Package {
	supported := make([]string, 0, len(pkg.SupportedOS))
	for _, o := range pkg.SupportedOS {
		supported = append(supported, o.Name+" "+o.Version)
	}
	sources := make([]SourceRecord, 0, len(pkg.Sources))
	for _, s := range pkg.Sources {
		sources = append(sources, SourceRecord{Architecture: s.Architecture, RepoName: s.RepoName, URI: s.URI})
	}
	return Package{
		ID:           id,
		Name:         pkg.Name,
		Version:      pkg.Version,
		SupportedOS:  supported,
		URI:          pkg.URI,
		Architecture: pkg.Architecture,
		Type:         pkg.Type,
		Tag:          pkg.Tag,
		Sources:      sources,
	}
}
