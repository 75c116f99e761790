package feature_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/feature"
)

const sampleFeatureList = `{
  "K8S Controller": {
    "packages": [
      {"package": "etcd", "type": "rpm", "repo_name": "base", "architecture": ["x86_64"]},
      {"package": "helm", "type": "tarball", "uri": "https://example.com/helm.tar.gz", "tag": "v3", "architecture": ["x86_64"]}
    ]
  },
  "Slurm Worker": {
    "packages": [
      {"package": "slurmd", "type": "rpm", "architecture": ["x86_64"]}
    ]
  }
}`

func writeFeatureList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "functional_layer.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoles(t *testing.T) {
	roles, err := feature.Roles(writeFeatureList(t, sampleFeatureList), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"K8S Controller", "Slurm Worker"}, roles); diff != "" {
		t.Fatalf("unexpected roles (-want +got):\n%s", diff)
	}
}

func TestRolesNotFound(t *testing.T) {
	_, err := feature.Roles(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRolesSchemaViolation(t *testing.T) {
	// A role without a packages array is structurally invalid for listing.
	_, err := feature.Roles(writeFeatureList(t, `{"Role": {}}`), testLogger())
	if !errors.Is(err, errs.ErrSchemaInvalid) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestListPackages(t *testing.T) {
	got, err := feature.ListPackages(writeFeatureList(t, sampleFeatureList), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	exp := []feature.RolePackages{
		{
			RoleName: "K8S Controller",
			Packages: []feature.PackageInfo{
				{Name: "etcd", Type: "rpm", RepoName: strptr("base"), Architecture: []string{"x86_64"}},
				{Name: "helm", Type: "tarball", Architecture: []string{"x86_64"}, URI: strptr("https://example.com/helm.tar.gz"), Tag: strptr("v3")},
			},
		},
		{
			RoleName: "Slurm Worker",
			Packages: []feature.PackageInfo{
				{Name: "slurmd", Type: "rpm", Architecture: []string{"x86_64"}},
			},
		},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("unexpected packages (-want +got):\n%s", diff)
	}
}

func TestListRolePackages(t *testing.T) {
	path := writeFeatureList(t, sampleFeatureList)

	t.Run("case-insensitive match preserves stored casing", func(t *testing.T) {
		got, err := feature.ListRolePackages(path, "slurm worker", testLogger())
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].RoleName != "Slurm Worker" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := feature.ListRolePackages(path, "No Such Role", testLogger())
		if !errors.Is(err, errs.ErrProcessing) {
			t.Fatalf("expected processing error, got %v", err)
		}
	})

	t.Run("empty role", func(t *testing.T) {
		_, err := feature.ListRolePackages(path, "", testLogger())
		if !errors.Is(err, errs.ErrProcessing) {
			t.Fatalf("expected processing error, got %v", err)
		}
	})
}
