// Package adapter encodes the fixed-rule configuration generation: the
// hardcoded Kubernetes and Slurm role splits, base-OS subset configs and the
// infrastructure fan-out. The declarative alternative lives in
// internal/policy.
package adapter

import (
	"path/filepath"
	"strings"

	"github.com/clusterforge/catconf/internal/catalog"
	"github.com/clusterforge/catconf/internal/clusterfile"
	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/feature"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/ordered"
	"github.com/clusterforge/catconf/internal/progress"
)

// packageKey identifies a package for the fixed-rule splits. Architecture is
// deliberately excluded: within one combination directory all packages share
// it. This key is NOT the policy engine's identity key; the two subsystems
// intentionally diverge.
type packageKey struct {
	name, typ, repoName string
}

func keyOf(p feature.Package) packageKey {
	return packageKey{name: p.Name, typ: p.Type, repoName: p.RepoName}
}

func clusterOf(pkgs []feature.Package) []*ordered.Object {
	cluster := make([]*ordered.Object, 0, len(pkgs))
	for _, p := range pkgs {
		cluster = append(cluster, feature.PackageDoc(p, false))
	}
	return cluster
}

// BuildDefaultPackages emits the Base OS feature's packages as
// default_packages.
func BuildDefaultPackages(baseOS *feature.FeatureList, log *logging.Logger) (*clusterfile.Doc, error) {
	f, ok := baseOS.Get("Base OS")
	if !ok {
		return nil, errs.Processingf("Base OS feature not found in base OS feature list")
	}
	doc := clusterfile.NewDoc()
	doc.Set("default_packages", clusterOf(f.Packages))
	log.Infof("built default_packages config with %d package(s)", len(f.Packages))
	return doc, nil
}

// buildSubsetConfig selects Base OS packages whose name contains any of the
// given substrings (case-folded). Returns nil when nothing matches so that
// no empty file is written.
func buildSubsetConfig(baseOS *feature.FeatureList, name string, substrings []string, log *logging.Logger) *clusterfile.Doc {
	f, ok := baseOS.Get("Base OS")
	if !ok {
		return nil
	}

	var selected []feature.Package
	for _, p := range f.Packages {
		lowered := strings.ToLower(p.Name)
		for _, sub := range substrings {
			if strings.Contains(lowered, strings.ToLower(sub)) {
				selected = append(selected, p)
				break
			}
		}
	}
	if len(selected) == 0 {
		log.Infof("no %s packages found in Base OS for substrings %v", name, substrings)
		return nil
	}

	doc := clusterfile.NewDoc()
	doc.Set(name, clusterOf(selected))
	log.Infof("built %s config with %d package(s)", name, len(selected))
	return doc
}

func BuildNFS(baseOS *feature.FeatureList, log *logging.Logger) *clusterfile.Doc {
	return buildSubsetConfig(baseOS, "nfs", []string{"nfs"}, log)
}

func BuildOpenLDAP(baseOS *feature.FeatureList, log *logging.Logger) *clusterfile.Doc {
	return buildSubsetConfig(baseOS, "openldap", []string{"ldap"}, log)
}

func BuildOpenMPI(baseOS *feature.FeatureList, log *logging.Logger) *clusterfile.Doc {
	return buildSubsetConfig(baseOS, "openmpi", []string{"openmpi"}, log)
}

// BuildServiceK8S splits the "K8S Controller" and "K8S Worker" roles. The
// identity-key intersection moves into service_k8s; each role's remainder
// becomes service_kube_control_plane / service_kube_node. The deduplicated
// union of the three outputs equals the deduplicated union of the two
// inputs.
func BuildServiceK8S(functional *feature.FeatureList, log *logging.Logger) (*clusterfile.Doc, error) {
	controller, okC := functional.Get("K8S Controller")
	worker, okW := functional.Get("K8S Worker")
	if !okC || !okW {
		return nil, errs.Processingf("K8S Controller or K8S Worker feature not found in functional layer")
	}

	controllerKeys := keySet(controller.Packages)
	workerKeys := keySet(worker.Packages)

	common := map[packageKey]struct{}{}
	for k := range controllerKeys {
		if _, ok := workerKeys[k]; ok {
			common[k] = struct{}{}
		}
	}

	// One instance per common key, in controller-then-worker first-seen order.
	var commonPkgs []feature.Package
	seen := map[packageKey]struct{}{}
	for _, p := range append(append([]feature.Package{}, controller.Packages...), worker.Packages...) {
		k := keyOf(p)
		if _, isCommon := common[k]; !isCommon {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		commonPkgs = append(commonPkgs, p)
	}

	log.Infof("built service_k8s config: %d controller pkg(s), %d worker pkg(s), %d common pkg(s)",
		len(controller.Packages), len(worker.Packages), len(commonPkgs))

	doc := clusterfile.NewDoc()
	doc.Set("service_kube_control_plane", clusterOf(withoutKeys(controller.Packages, common)))
	doc.Set("service_kube_node", clusterOf(withoutKeys(worker.Packages, common)))
	doc.Set("service_k8s", clusterOf(commonPkgs))
	return doc, nil
}

// slurmRoles maps the four required functional-layer roles to their output
// cluster names, in output order.
var slurmRoles = []struct {
	feature string
	cluster string
}{
	{"Login Node", "login_node"},
	{"Compiler", "login_compiler_node"},
	{"Slurm Controller", "slurm_control_node"},
	{"Slurm Worker", "slurm_node"},
}

// BuildSlurmCustom examines the four Slurm-related roles. A package key is
// counted once per role it appears in; keys present in two or more roles
// move into slurms_custom and are removed from every originating cluster.
// All four roles must exist in the functional layer.
func BuildSlurmCustom(functional *feature.FeatureList, log *logging.Logger) (*clusterfile.Doc, error) {
	features := make([]*feature.Feature, len(slurmRoles))
	for i, role := range slurmRoles {
		f, ok := functional.Get(role.feature)
		if !ok {
			return nil, errs.Processingf("required Slurm-related feature %q not found in functional layer", role.feature)
		}
		features[i] = f
	}

	counts := map[packageKey]int{}
	var keyOrder []packageKey
	keyToPkg := map[packageKey]feature.Package{}

	for _, f := range features {
		seenInRole := map[packageKey]struct{}{}
		for _, p := range f.Packages {
			k := keyOf(p)
			if _, ok := keyToPkg[k]; !ok {
				keyToPkg[k] = p
				keyOrder = append(keyOrder, k)
			}
			if _, ok := seenInRole[k]; ok {
				continue
			}
			seenInRole[k] = struct{}{}
			counts[k]++
		}
	}

	common := map[packageKey]struct{}{}
	for k, n := range counts {
		if n >= 2 {
			common[k] = struct{}{}
		}
	}

	doc := clusterfile.NewDoc()
	for i, role := range slurmRoles {
		doc.Set(role.cluster, clusterOf(withoutKeys(features[i].Packages, common)))
	}

	var commonPkgs []feature.Package
	for _, k := range keyOrder {
		if _, ok := common[k]; ok {
			commonPkgs = append(commonPkgs, keyToPkg[k])
		}
	}
	doc.Set("slurms_custom", clusterOf(commonPkgs))

	log.Infof("built slurm_custom config with %d node cluster(s) and %d common package(s)",
		len(slurmRoles), len(commonPkgs))
	return doc, nil
}

// InfraConfig is one infrastructure output file.
type InfraConfig struct {
	File string
	Doc  *clusterfile.Doc
}

// BuildInfraConfigs fans the infrastructure feature list out into one file
// per feature. File and top-level key are snake-cased from the feature
// name, except a feature named "CSI" which keeps the historical
// csi_driver_powerscale naming.
func BuildInfraConfigs(infra *feature.FeatureList, log *logging.Logger) []InfraConfig {
	var configs []InfraConfig
	for name, f := range infra.All() {
		var file, topKey string
		if strings.EqualFold(name, "csi") {
			file, topKey = "csi_driver_powerscale.json", "csi_driver_powerscale"
		} else {
			topKey = snakeCase(name)
			file = topKey + ".json"
		}

		doc := clusterfile.NewDoc()
		doc.Set(topKey, clusterOf(f.Packages))
		configs = append(configs, InfraConfig{File: file, Doc: doc})
	}
	log.Infof("built %d infrastructure config file(s)", len(configs))
	return configs
}

func snakeCase(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func keySet(pkgs []feature.Package) map[packageKey]struct{} {
	set := make(map[packageKey]struct{}, len(pkgs))
	for _, p := range pkgs {
		set[keyOf(p)] = struct{}{}
	}
	return set
}

func withoutKeys(pkgs []feature.Package, exclude map[packageKey]struct{}) []feature.Package {
	var kept []feature.Package
	for _, p := range pkgs {
		if _, ok := exclude[keyOf(p)]; !ok {
			kept = append(kept, p)
		}
	}
	return kept
}

// Generate parses the catalog and writes the full fixed-rule config set for
// every discovered combination under <outputRoot>/<arch>/<family>/<version>/.
func Generate(catalogPath, schemaPath, outputRoot string, log *logging.Logger, bar *progress.Bar) error {
	c, err := catalog.ParseFile(catalogPath, schemaPath, log)
	if err != nil {
		return err
	}

	functional := feature.FunctionalLayer(c, log)
	infrastructure := feature.Infrastructure(c, log)
	baseOS := feature.BaseOS(c, log)
	miscellaneous := feature.Miscellaneous(c, log)

	combos := catalog.DiscoverCombinations(c)
	log.Infof("generating adapter configs for %d combination(s)", len(combos))

	for _, combo := range combos {
		functionalArch := functional.ForArchitecture(combo.Architecture)
		baseOSArch := baseOS.ForArchitecture(combo.Architecture)
		infraArch := infrastructure.ForArchitecture(combo.Architecture)
		miscArch := miscellaneous.ForArchitecture(combo.Architecture)

		log.Infof("building configs for %s", combo)

		type outputFile struct {
			name string
			doc  *clusterfile.Doc
		}
		var outputs []outputFile

		defaultPackages, err := BuildDefaultPackages(baseOSArch, log)
		if err != nil {
			return err
		}
		outputs = append(outputs, outputFile{"default_packages.json", defaultPackages})

		for _, subset := range []struct {
			name  string
			build func(*feature.FeatureList, *logging.Logger) *clusterfile.Doc
		}{
			{"nfs.json", BuildNFS},
			{"openldap.json", BuildOpenLDAP},
			{"openmpi.json", BuildOpenMPI},
		} {
			if doc := subset.build(baseOSArch, log); doc != nil {
				outputs = append(outputs, outputFile{subset.name, doc})
			}
		}

		serviceK8S, err := BuildServiceK8S(functionalArch, log)
		if err != nil {
			return err
		}
		outputs = append(outputs, outputFile{"service_k8s.json", serviceK8S})

		slurmCustom, err := BuildSlurmCustom(functionalArch, log)
		if err != nil {
			return err
		}
		outputs = append(outputs, outputFile{"slurm_custom.json", slurmCustom})

		if misc, ok := miscArch.Get("Miscellaneous"); ok && len(misc.Packages) > 0 {
			doc := clusterfile.NewDoc()
			doc.Set("miscellaneous", clusterOf(misc.Packages))
			outputs = append(outputs, outputFile{"miscellaneous.json", doc})
		}

		for _, infra := range BuildInfraConfigs(infraArch, log) {
			outputs = append(outputs, outputFile{infra.File, infra.Doc})
		}

		dir := combo.Dir(outputRoot)
		for _, out := range outputs {
			if err := clusterfile.WriteFile(filepath.Join(dir, out.name), out.doc); err != nil {
				return &errs.ProcessingError{Op: "write " + filepath.Join(dir, out.name), Err: err}
			}
		}

		bar.Add(1)
	}

	return nil
}
