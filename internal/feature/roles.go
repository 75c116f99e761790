package feature

import (
	"errors"
	"os"
	"strings"

	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/schemadoc"
)

// RolePackages is the listing result for one role.
type RolePackages struct {
	RoleName string        `json:"roleName"`
	Packages []PackageInfo `json:"packages"`
}

// PackageInfo mirrors one package of a feature-list file. Optional fields
// are nil when absent or empty, serialized as JSON null.
type PackageInfo struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	RepoName     *string  `json:"repo_name"`
	Architecture []string `json:"architecture"`
	URI          *string  `json:"uri"`
	Tag          *string  `json:"tag"`
}

// Roles returns the role names (top-level keys) of a feature-list file in
// stored order. The document is schema-validated before it is read.
func Roles(path string, log *logging.Logger) ([]string, error) {
	fl, err := loadValidated(path, log)
	if err != nil {
		return nil, err
	}
	log.Infof("listed %d role(s) from %s", fl.Len(), path)
	return fl.Names(), nil
}

// ListPackages returns packages for every role of a feature-list file.
func ListPackages(path string, log *logging.Logger) ([]RolePackages, error) {
	fl, err := loadValidated(path, log)
	if err != nil {
		return nil, err
	}
	return rolePackages(fl, fl.Names()), nil
}

// ListRolePackages returns packages for a single role, matched
// case-insensitively. The result preserves the stored role's original
// casing.
func ListRolePackages(path, role string, log *logging.Logger) ([]RolePackages, error) {
	if role == "" {
		return nil, errs.Processingf("role must be a non-empty string")
	}

	fl, err := loadValidated(path, log)
	if err != nil {
		return nil, err
	}

	matched := ""
	for _, name := range fl.Names() {
		if strings.EqualFold(name, role) {
			matched = name
			break
		}
	}
	if matched == "" {
		log.Errorf("role %q not found in %s (available roles: %v)", role, path, fl.Names())
		return nil, errs.Processingf("role %q not found, available roles: %v", role, fl.Names())
	}

	return rolePackages(fl, []string{matched}), nil
}

func loadValidated(path string, log *logging.Logger) (*FeatureList, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Errorf("feature-list file not found: %s", path)
			return nil, &errs.NotFoundError{Path: path}
		}
		return nil, err
	}

	if err := schemadoc.Validate(featureListSchema, bs, path, featureListSchemaName); err != nil {
		log.Errorf("feature-list validation failed for %s", path)
		return nil, err
	}
	log.Debugf("feature list %s validated", path)

	return Unmarshal(bs, path)
}

func rolePackages(fl *FeatureList, names []string) []RolePackages {
	result := make([]RolePackages, 0, len(names))
	for _, name := range names {
		f, _ := fl.Get(name)
		packages := make([]PackageInfo, 0, len(f.Packages))
		for _, p := range f.Packages {
			info := PackageInfo{
				Name:         p.Name,
				Type:         p.Type,
				Architecture: p.Architecture,
				URI:          p.URI,
			}
			if p.RepoName != "" {
				repo := p.RepoName
				info.RepoName = &repo
			}
			if p.Tag != "" {
				tag := p.Tag
				info.Tag = &tag
			}
			packages = append(packages, info)
		}
		result = append(result, RolePackages{RoleName: name, Packages: packages})
	}
	return result
}
