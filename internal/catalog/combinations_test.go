package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clusterforge/catconf/internal/catalog"
)

func TestDiscoverCombinations(t *testing.T) {
	cases := []struct {
		note       string
		functional []catalog.Package
		os         []catalog.Package
		exp        []catalog.Combination
	}{
		{
			note: "cross product, lowercased family, sorted",
			functional: []catalog.Package{
				{
					Name:         "a",
					Architecture: []string{"x86_64", "aarch64"},
					SupportedOS:  []string{"RHEL 9.0", "Ubuntu 22.04"},
				},
			},
			exp: []catalog.Combination{
				{Architecture: "aarch64", OSFamily: "rhel", OSVersion: "9.0"},
				{Architecture: "aarch64", OSFamily: "ubuntu", OSVersion: "22.04"},
				{Architecture: "x86_64", OSFamily: "rhel", OSVersion: "9.0"},
				{Architecture: "x86_64", OSFamily: "ubuntu", OSVersion: "22.04"},
			},
		},
		{
			note: "deduplicated across functional and OS tables",
			functional: []catalog.Package{
				{Name: "a", Architecture: []string{"x86_64"}, SupportedOS: []string{"RHEL 9.0"}},
			},
			os: []catalog.Package{
				{Name: "b", Architecture: []string{"x86_64"}, SupportedOS: []string{"RHEL 9.0"}},
			},
			exp: []catalog.Combination{
				{Architecture: "x86_64", OSFamily: "rhel", OSVersion: "9.0"},
			},
		},
		{
			note: "supported OS without version",
			functional: []catalog.Package{
				{Name: "a", Architecture: []string{"x86_64"}, SupportedOS: []string{"RHEL"}},
			},
			exp: []catalog.Combination{
				{Architecture: "x86_64", OSFamily: "rhel", OSVersion: ""},
			},
		},
		{
			note: "empty catalog",
			exp:  []catalog.Combination{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			c := &catalog.Catalog{FunctionalPackages: tc.functional, OSPackages: tc.os}
			got := catalog.DiscoverCombinations(c)
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Fatalf("unexpected combinations (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiscoverCombinationsDeterministic(t *testing.T) {
	c := &catalog.Catalog{
		FunctionalPackages: []catalog.Package{
			{Name: "a", Architecture: []string{"x86_64", "aarch64"}, SupportedOS: []string{"RHEL 9.0", "RHEL 8.6", "Ubuntu 22.04"}},
			{Name: "b", Architecture: []string{"aarch64"}, SupportedOS: []string{"RHEL 9.0"}},
		},
	}

	first := catalog.DiscoverCombinations(c)
	for range 10 {
		if diff := cmp.Diff(first, catalog.DiscoverCombinations(c)); diff != "" {
			t.Fatalf("ordering not deterministic (-first +later):\n%s", diff)
		}
	}
}

func TestCombinationDir(t *testing.T) {
	combo := catalog.Combination{Architecture: "x86_64", OSFamily: "rhel", OSVersion: "9.0"}
	exp := filepath.Join("out", "x86_64", "rhel", "9.0")
	if got := combo.Dir("out"); got != exp {
		t.Fatalf("unexpected dir: %s", got)
	}
}
