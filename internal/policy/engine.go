package policy

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/clusterforge/catconf/internal/clusterfile"
	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/ordered"
	"github.com/clusterforge/catconf/internal/progress"
)

// sourcePattern matches the role documents loaded from a combination
// directory.
var sourcePattern = glob.MustCompile("*.json")

// combination is one (architecture, OS family, OS version) directory tuple
// discovered under the input root.
type combination struct {
	arch, osFamily, osVersion string
}

func (c combination) dir(root string) string {
	return filepath.Join(root, c.arch, c.osFamily, c.osVersion)
}

// Run evaluates a policy over an input tree of role documents and writes the
// resulting target files under the same <arch>/<family>/<version> layout.
// Combinations are independent, so they are processed concurrently; each one
// loads its own sources and writes its own outputs.
func Run(inputRoot, outputRoot, policyPath, schemaPath string, log *logging.Logger, bar *progress.Bar) error {
	info, err := os.Stat(inputRoot)
	if err != nil || !info.IsDir() {
		log.Errorf("input directory not found: %s", inputRoot)
		return &errs.NotFoundError{Path: inputRoot}
	}

	p, err := Load(policyPath, schemaPath, log)
	if err != nil {
		return err
	}
	if policyPath == "" {
		policyPath = embeddedPolicyName
	}
	log.Infof("loaded %d target(s) from %s", len(p.Targets), policyPath)

	combos, err := discoverCombinations(inputRoot)
	if err != nil {
		return err
	}
	if len(combos) == 0 {
		log.Warnf("no combinations discovered under input directory: %s", inputRoot)
		return nil
	}
	log.Infof("processing %d combination(s)", len(combos))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, combo := range combos {
		g.Go(func() error {
			defer bar.Add(1)
			return runCombination(p, combo, inputRoot, outputRoot, log)
		})
	}
	return g.Wait()
}

func runCombination(p *Policy, combo combination, inputRoot, outputRoot string, log *logging.Logger) error {
	log.Infof("processing arch=%s os=%s version=%s", combo.arch, combo.osFamily, combo.osVersion)

	sources, err := loadSources(combo.dir(inputRoot), log)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		log.Warnf("no source files in %s, skipping", combo.dir(inputRoot))
		return nil
	}

	for _, target := range p.Targets {
		doc := buildTarget(target, sources, combo, log)
		if doc == nil || !doc.NonEmpty() {
			continue
		}
		path := filepath.Join(combo.dir(outputRoot), target.File)
		if err := clusterfile.WriteFile(path, doc); err != nil {
			return &errs.ProcessingError{Op: "write " + path, Err: err}
		}
		log.Infof("written %s", path)
	}
	return nil
}

// buildTarget evaluates one target for one combination. Returns nil when the
// target's conditions exclude the combination.
func buildTarget(target *Target, sources map[string]*ordered.Object, combo combination, log *logging.Logger) *clusterfile.Doc {
	if !target.Conditions.Match(combo.arch, combo.osFamily, combo.osVersion) {
		log.Debugf("skipping target %s (conditions not met)", target.File)
		return nil
	}

	doc := clusterfile.NewDoc()

	for _, source := range target.Sources {
		data, ok := sources[source.SourceFile]
		if !ok {
			log.Debugf("source file %s not available for target %s", source.SourceFile, target.File)
			continue
		}

		for _, pull := range source.Pulls {
			packages, ok := rolePackages(data, pull.SourceKey)
			if !ok {
				log.Debugf("source key %q not found in %s", pull.SourceKey, source.SourceFile)
				continue
			}

			packages = pull.Filter.Apply(packages, log)

			transform := target.Transform.merge(pull.Transform)
			transformed := make([]*ordered.Object, 0, len(packages))
			for _, pkg := range packages {
				transformed = append(transformed, transform.Apply(pkg))
			}

			targetKey := pull.TargetKey
			if targetKey == "" {
				targetKey = pull.SourceKey
			}
			// Last write wins when two pulls share a target key.
			doc.Set(targetKey, transformed)
		}
	}

	for _, derived := range target.Derived {
		if derived.Operation.Type != OpExtractCommon {
			log.Warnf("unsupported derived operation type %q in target %s", derived.Operation.Type, target.File)
			continue
		}
		if derived.TargetKey == "" || len(derived.Operation.FromKeys) == 0 {
			continue
		}
		deriveCommon(doc, derived.TargetKey, derived.Operation)
	}

	return doc
}

// rolePackages extracts a role's package list from a source document.
func rolePackages(data *ordered.Object, sourceKey string) ([]*ordered.Object, bool) {
	if sourceKey == "" {
		return nil, false
	}
	raw, ok := data.Get(sourceKey)
	if !ok {
		return nil, false
	}
	role, ok := raw.(*ordered.Object)
	if !ok {
		return nil, false
	}

	var packages []*ordered.Object
	if items, ok := role.Get("packages"); ok {
		if list, ok := items.([]any); ok {
			for _, item := range list {
				if pkg, ok := item.(*ordered.Object); ok {
					packages = append(packages, pkg)
				}
			}
		}
	}
	return packages, true
}

// deriveCommon moves packages present in at least minOccurrences of the
// compared roles into a new derived role. A package's identity key counts at
// most once per role. The derived role lists common packages in compared-key
// order, first seen first; when removal is on, every compared role loses its
// common packages, so re-running the extraction yields an empty set.
func deriveCommon(doc *clusterfile.Doc, derivedKey string, op Operation) {
	minOccurrences := op.minOccurrences()

	counts := map[string]int{}
	for _, role := range op.FromKeys {
		pkgs, _ := doc.Get(role)
		seenInRole := map[string]struct{}{}
		for _, pkg := range pkgs {
			k := identityKey(pkg)
			if _, ok := seenInRole[k]; ok {
				continue
			}
			seenInRole[k] = struct{}{}
			counts[k]++
		}
	}

	common := map[string]struct{}{}
	for k, n := range counts {
		if n >= minOccurrences {
			common[k] = struct{}{}
		}
	}

	var commonPkgs []*ordered.Object
	seen := map[string]struct{}{}
	for _, role := range op.FromKeys {
		pkgs, _ := doc.Get(role)
		for _, pkg := range pkgs {
			k := identityKey(pkg)
			if _, isCommon := common[k]; !isCommon {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			commonPkgs = append(commonPkgs, pkg)
		}
	}
	doc.Set(derivedKey, commonPkgs)

	if !op.removeFromSources() {
		return
	}
	for _, role := range op.FromKeys {
		pkgs, _ := doc.Get(role)
		kept := make([]*ordered.Object, 0, len(pkgs))
		for _, pkg := range pkgs {
			if _, ok := common[identityKey(pkg)]; !ok {
				kept = append(kept, pkg)
			}
		}
		doc.Set(role, kept)
	}
}

// discoverCombinations walks the arch/family/version directory
// structure. Directory entries come back sorted, which fixes the processing
// order.
func discoverCombinations(inputRoot string) ([]combination, error) {
	var combos []combination

	archs, err := os.ReadDir(inputRoot)
	if err != nil {
		return nil, &errs.ProcessingError{Op: "read input directory " + inputRoot, Err: err}
	}
	for _, arch := range archs {
		if !arch.IsDir() {
			continue
		}
		archDir := filepath.Join(inputRoot, arch.Name())
		families, err := os.ReadDir(archDir)
		if err != nil {
			return nil, &errs.ProcessingError{Op: "read " + archDir, Err: err}
		}
		for _, family := range families {
			if !family.IsDir() {
				continue
			}
			familyDir := filepath.Join(archDir, family.Name())
			versions, err := os.ReadDir(familyDir)
			if err != nil {
				return nil, &errs.ProcessingError{Op: "read " + familyDir, Err: err}
			}
			for _, version := range versions {
				if !version.IsDir() {
					continue
				}
				combos = append(combos, combination{
					arch:      arch.Name(),
					osFamily:  family.Name(),
					osVersion: version.Name(),
				})
			}
		}
	}
	return combos, nil
}

// loadSources reads every matching role document in a combination directory
// keyed by file name.
func loadSources(dir string, log *logging.Logger) (map[string]*ordered.Object, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &errs.ProcessingError{Op: "read source directory " + dir, Err: err}
	}

	sources := map[string]*ordered.Object{}
	for _, entry := range entries {
		if entry.IsDir() || !sourcePattern.Match(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, &errs.ProcessingError{Op: "read source file " + path, Err: err}
		}
		doc := ordered.NewObject()
		if err := doc.UnmarshalJSON(bs); err != nil {
			return nil, &errs.ProcessingError{Op: "parse source file " + path, Err: err}
		}
		sources[entry.Name()] = doc
		log.Debugf("loaded source file %s", path)
	}
	return sources, nil
}
