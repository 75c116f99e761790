// Package generator writes per-combination feature-list files from a
// catalog: one directory per (architecture, OS family, OS version), five
// role documents per directory.
package generator

import (
	"os"
	"path/filepath"

	"github.com/clusterforge/catconf/internal/catalog"
	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/feature"
	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/progress"
)

// Generate parses and validates the catalog, then writes
// functional_layer.json, infrastructure.json, drivers.json, base_os.json and
// miscellaneous.json for every discovered combination under
// <outputRoot>/<arch>/<family>/<version>/.
func Generate(catalogPath, schemaPath, outputRoot string, log *logging.Logger, bar *progress.Bar) error {
	c, err := catalog.ParseFile(catalogPath, schemaPath, log)
	if err != nil {
		return err
	}

	functional := feature.FunctionalLayer(c, log)
	infrastructure := feature.Infrastructure(c, log)
	drivers := feature.Drivers(c, log)
	baseOS := feature.BaseOS(c, log)
	miscellaneous := feature.Miscellaneous(c, log)

	combos := catalog.DiscoverCombinations(c)
	log.Infof("discovered %d combination(s) in catalog %s", len(combos), c.Name)

	for _, combo := range combos {
		dir := combo.Dir(outputRoot)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &errs.ProcessingError{Op: "create output directory " + dir, Err: err}
		}

		log.Infof("generating feature lists for %s into %s", combo, dir)

		files := []struct {
			name string
			fl   *feature.FeatureList
		}{
			{"functional_layer.json", functional},
			{"infrastructure.json", infrastructure},
			{"drivers.json", drivers},
			{"base_os.json", baseOS},
			{"miscellaneous.json", miscellaneous},
		}
		for _, file := range files {
			narrowed := file.fl.ForArchitecture(combo.Architecture)
			path := filepath.Join(dir, file.name)
			if err := feature.WriteFile(narrowed, path); err != nil {
				return &errs.ProcessingError{Op: "write " + path, Err: err}
			}
		}

		bar.Add(1)
	}

	return nil
}
