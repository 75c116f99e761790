package policy

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clusterforge/catconf/internal/logging"
	"github.com/clusterforge/catconf/internal/ordered"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.LevelError, Output: os.Stderr})
}

func obj(fields ...any) *ordered.Object {
	o := ordered.NewObject()
	for i := 0; i+1 < len(fields); i += 2 {
		o.Set(fields[i].(string), fields[i+1])
	}
	return o
}

func names(pkgs []*ordered.Object) []string {
	var out []string
	for _, p := range pkgs {
		name, _ := p.Get("package")
		out = append(out, name.(string))
	}
	return out
}

func TestFilterApply(t *testing.T) {
	packages := []*ordered.Object{
		obj("package", "nfs-utils", "type", "rpm"),
		obj("package", "OpenLDAP", "type", "rpm"),
		obj("package", "kubelet", "type", "tarball", "architecture", []any{"x86_64", "aarch64"}),
	}

	cases := []struct {
		note   string
		filter *Filter
		exp    []string
	}{
		{
			note:   "nil filter is identity",
			filter: nil,
			exp:    []string{"nfs-utils", "OpenLDAP", "kubelet"},
		},
		{
			note:   "substring with empty values is identity",
			filter: &Filter{Type: FilterSubstring},
			exp:    []string{"nfs-utils", "OpenLDAP", "kubelet"},
		},
		{
			note:   "substring case-folded by default",
			filter: &Filter{Type: FilterSubstring, Values: []string{"ldap"}},
			exp:    []string{"OpenLDAP"},
		},
		{
			note:   "substring case-sensitive",
			filter: &Filter{Type: FilterSubstring, Values: []string{"ldap"}, CaseSensitive: true},
			exp:    nil,
		},
		{
			note:   "substring defaults to package field",
			filter: &Filter{Type: FilterSubstring, Values: []string{"nfs"}},
			exp:    []string{"nfs-utils"},
		},
		{
			note:   "allowlist exact match only",
			filter: &Filter{Type: FilterAllowlist, Field: "type", Values: []string{"rpm"}},
			exp:    []string{"nfs-utils", "OpenLDAP"},
		},
		{
			note:   "allowlist no partial matches",
			filter: &Filter{Type: FilterAllowlist, Field: "package", Values: []string{"nfs"}},
			exp:    nil,
		},
		{
			note:   "field_in intersects list-valued fields",
			filter: &Filter{Type: FilterFieldIn, Field: "architecture", Values: []string{"aarch64"}},
			exp:    []string{"kubelet"},
		},
		{
			note:   "field_in works on scalars too",
			filter: &Filter{Type: FilterFieldIn, Field: "type", Values: []string{"tarball"}},
			exp:    []string{"kubelet"},
		},
		{
			note: "any_of is a short-circuit union",
			filter: &Filter{Type: FilterAnyOf, Filters: []*Filter{
				{Type: FilterSubstring, Values: []string{"nfs"}},
				{Type: FilterAllowlist, Field: "type", Values: []string{"tarball"}},
			}},
			exp: []string{"nfs-utils", "kubelet"},
		},
		{
			note:   "any_of with no sub-filters is identity",
			filter: &Filter{Type: FilterAnyOf},
			exp:    []string{"nfs-utils", "OpenLDAP", "kubelet"},
		},
		{
			note:   "unknown type passes through",
			filter: &Filter{Type: "regex", Values: []string{".*"}},
			exp:    []string{"nfs-utils", "OpenLDAP", "kubelet"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			got := tc.filter.Apply(packages, testLogger())
			if diff := cmp.Diff(tc.exp, names(got)); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	packages := []*ordered.Object{obj("package", "a", "type", "rpm")}
	f := &Filter{Type: FilterSubstring, Values: []string{"zzz"}}

	_ = f.Apply(packages, testLogger())

	if v, _ := packages[0].Get("package"); v != "a" {
		t.Fatalf("input mutated: %v", v)
	}
	if len(packages) != 1 {
		t.Fatalf("input resized: %d", len(packages))
	}
}
