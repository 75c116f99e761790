package adapter_test

import (
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clusterforge/catconf/internal/adapter"
	"github.com/clusterforge/catconf/internal/clusterfile"
	"github.com/clusterforge/catconf/internal/errs"
	"github.com/clusterforge/catconf/internal/feature"
	"github.com/clusterforge/catconf/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.LevelError, Output: os.Stderr})
}

func pkg(name, typ, repo string) feature.Package {
	return feature.Package{Name: name, Type: typ, RepoName: repo, Architecture: []string{"x86_64"}}
}

func functionalList(features map[string][]feature.Package, order ...string) *feature.FeatureList {
	fl := feature.NewFeatureList()
	for _, name := range order {
		fl.Set(&feature.Feature{Name: name, Packages: features[name]})
	}
	return fl
}

func baseOSList(pkgs ...feature.Package) *feature.FeatureList {
	fl := feature.NewFeatureList()
	fl.Set(&feature.Feature{Name: "Base OS", Packages: pkgs})
	return fl
}

func clusterNames(t *testing.T, doc *clusterfile.Doc, role string) []string {
	t.Helper()
	cluster, ok := doc.Get(role)
	if !ok {
		t.Fatalf("role %q missing, have %v", role, doc.Roles())
	}
	names := make([]string, 0, len(cluster))
	for _, obj := range cluster {
		name, _ := obj.Get("package")
		names = append(names, name.(string))
	}
	return names
}

func TestBuildDefaultPackages(t *testing.T) {
	doc, err := adapter.BuildDefaultPackages(baseOSList(pkg("curl", "rpm", "base"), pkg("wget", "rpm", "base")), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"curl", "wget"}, clusterNames(t, doc, "default_packages")); diff != "" {
		t.Fatalf("unexpected packages (-want +got):\n%s", diff)
	}

	_, err = adapter.BuildDefaultPackages(feature.NewFeatureList(), testLogger())
	if !errors.Is(err, errs.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestSubsetConfigs(t *testing.T) {
	base := baseOSList(
		pkg("nfs-utils", "rpm", "base"),
		pkg("openldap-clients", "rpm", "base"),
		pkg("OpenMPI", "rpm", "base"),
		pkg("curl", "rpm", "base"),
	)

	cases := []struct {
		note  string
		build func(*feature.FeatureList, *logging.Logger) *clusterfile.Doc
		role  string
		exp   []string
	}{
		{note: "nfs", build: adapter.BuildNFS, role: "nfs", exp: []string{"nfs-utils"}},
		{note: "openldap", build: adapter.BuildOpenLDAP, role: "openldap", exp: []string{"openldap-clients"}},
		{note: "openmpi case-folded", build: adapter.BuildOpenMPI, role: "openmpi", exp: []string{"OpenMPI"}},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			doc := tc.build(base, testLogger())
			if doc == nil {
				t.Fatal("expected a config")
			}
			if diff := cmp.Diff(tc.exp, clusterNames(t, doc, tc.role)); diff != "" {
				t.Fatalf("unexpected packages (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("no match yields no config", func(t *testing.T) {
		if doc := adapter.BuildNFS(baseOSList(pkg("curl", "rpm", "base")), testLogger()); doc != nil {
			t.Fatalf("expected nil, got roles %v", doc.Roles())
		}
	})
}

func TestBuildServiceK8S(t *testing.T) {
	etcd := pkg("etcd", "rpm", "base")
	containerd := pkg("containerd", "rpm", "base")

	fl := functionalList(map[string][]feature.Package{
		"K8S Controller": {etcd},
		"K8S Worker":     {etcd, containerd},
	}, "K8S Controller", "K8S Worker")

	doc, err := adapter.BuildServiceK8S(fl, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"service_kube_control_plane", "service_kube_node", "service_k8s"}, doc.Roles()); diff != "" {
		t.Fatalf("unexpected role order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{}, clusterNames(t, doc, "service_kube_control_plane")); diff != "" {
		t.Fatalf("unexpected control plane (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"containerd"}, clusterNames(t, doc, "service_kube_node")); diff != "" {
		t.Fatalf("unexpected node (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"etcd"}, clusterNames(t, doc, "service_k8s")); diff != "" {
		t.Fatalf("unexpected common (-want +got):\n%s", diff)
	}
}

func TestBuildServiceK8SConservation(t *testing.T) {
	// Same name but different repo: distinct identity keys, no intersection.
	a := pkg("etcd", "rpm", "repo-a")
	b := pkg("etcd", "rpm", "repo-b")
	shared := pkg("kubelet", "rpm", "base")

	fl := functionalList(map[string][]feature.Package{
		"K8S Controller": {a, shared},
		"K8S Worker":     {b, shared},
	}, "K8S Controller", "K8S Worker")

	doc, err := adapter.BuildServiceK8S(fl, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	var all []string
	for _, role := range doc.Roles() {
		all = append(all, clusterNames(t, doc, role)...)
	}
	sort.Strings(all)
	// Union of the three outputs equals the deduplicated union of the inputs.
	if diff := cmp.Diff([]string{"etcd", "etcd", "kubelet"}, all); diff != "" {
		t.Fatalf("packages lost or duplicated (-want +got):\n%s", diff)
	}
}

func TestBuildServiceK8SMissingRole(t *testing.T) {
	fl := functionalList(map[string][]feature.Package{
		"K8S Controller": {pkg("etcd", "rpm", "base")},
	}, "K8S Controller")

	_, err := adapter.BuildServiceK8S(fl, testLogger())
	if !errors.Is(err, errs.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestBuildSlurmCustom(t *testing.T) {
	slurm := pkg("slurm", "rpm", "base")
	munge := pkg("munge", "rpm", "base")
	gcc := pkg("gcc", "rpm", "base")
	slurmd := pkg("slurmd", "rpm", "base")

	fl := functionalList(map[string][]feature.Package{
		"Login Node":       {slurm, munge},
		"Compiler":         {gcc},
		"Slurm Controller": {slurm, munge},
		// Duplicate within one role counts once.
		"Slurm Worker": {slurmd, slurmd, munge},
	}, "Login Node", "Compiler", "Slurm Controller", "Slurm Worker")

	doc, err := adapter.BuildSlurmCustom(fl, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	exp := []string{"login_node", "login_compiler_node", "slurm_control_node", "slurm_node", "slurms_custom"}
	if diff := cmp.Diff(exp, doc.Roles()); diff != "" {
		t.Fatalf("unexpected role order (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{}, clusterNames(t, doc, "login_node")); diff != "" {
		t.Fatalf("unexpected login_node (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gcc"}, clusterNames(t, doc, "login_compiler_node")); diff != "" {
		t.Fatalf("unexpected login_compiler_node (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"slurmd", "slurmd"}, clusterNames(t, doc, "slurm_node")); diff != "" {
		t.Fatalf("unexpected slurm_node (-want +got):\n%s", diff)
	}
	// Common packages in first-seen order across the four roles.
	if diff := cmp.Diff([]string{"slurm", "munge"}, clusterNames(t, doc, "slurms_custom")); diff != "" {
		t.Fatalf("unexpected slurms_custom (-want +got):\n%s", diff)
	}
}

func TestBuildSlurmCustomMissingRole(t *testing.T) {
	fl := functionalList(map[string][]feature.Package{
		"Login Node":       {},
		"Compiler":         {},
		"Slurm Controller": {},
	}, "Login Node", "Compiler", "Slurm Controller")

	_, err := adapter.BuildSlurmCustom(fl, testLogger())
	if !errors.Is(err, errs.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestBuildInfraConfigs(t *testing.T) {
	fl := feature.NewFeatureList()
	fl.Set(&feature.Feature{Name: "CSI", Packages: []feature.Package{pkg("powerscale", "helm", "")}})
	fl.Set(&feature.Feature{Name: "Object Storage", Packages: []feature.Package{pkg("minio", "helm", "")}})

	configs := adapter.BuildInfraConfigs(fl, testLogger())
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}

	if configs[0].File != "csi_driver_powerscale.json" {
		t.Fatalf("CSI exception not applied: %s", configs[0].File)
	}
	if diff := cmp.Diff([]string{"powerscale"}, clusterNames(t, configs[0].Doc, "csi_driver_powerscale")); diff != "" {
		t.Fatalf("unexpected CSI packages (-want +got):\n%s", diff)
	}

	if configs[1].File != "object_storage.json" {
		t.Fatalf("snake case not applied: %s", configs[1].File)
	}
	if _, ok := configs[1].Doc.Get("object_storage"); !ok {
		t.Fatalf("unexpected top key, roles: %v", configs[1].Doc.Roles())
	}
}
