package texlive

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/texpm/texpm/pkg/errors"
)

// makeTree creates a minimal TeX Live layout under dir/year.
func makeTree(t *testing.T, dir, year string) string {
	t.Helper()
	root := filepath.Join(dir, year)
	if err := os.MkdirAll(filepath.Join(root, "texmf-dist"), 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestDetectOverride(t *testing.T) {
	root := makeTree(t, t.TempDir(), "2024")

	inst, err := Detect(root)
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if inst.Root != root {
		t.Errorf("Root = %q, want %q", inst.Root, root)
	}
	if inst.Version != "2024" {
		t.Errorf("Version = %q, want 2024", inst.Version)
	}
	if inst.TexmfDist != filepath.Join(root, "texmf-dist") {
		t.Errorf("TexmfDist = %q", inst.TexmfDist)
	}
}

func TestDetectOverrideInvalid(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "nothing-here"))
	if !errors.Is(err, errors.ErrCodeTeXLiveNotFound) {
		t.Errorf("err = %v, want texlive not found", err)
	}
}

func TestDetectEnvVar(t *testing.T) {
	root := makeTree(t, t.TempDir(), "2023")
	t.Setenv("TEXLIVE_ROOT", root)

	inst, err := Detect("")
	if err != nil {
		t.Fatalf("Detect error: %v", err)
	}
	if inst.Root != root {
		t.Errorf("Root = %q, want env var root %q", inst.Root, root)
	}
}

func TestLatestYearDir(t *testing.T) {
	prefix := t.TempDir()
	for _, year := range []string{"2021", "2024", "2019", "1999", "notayear"} {
		if err := os.MkdirAll(filepath.Join(prefix, year), 0755); err != nil {
			t.Fatal(err)
		}
	}

	if got := latestYearDir(prefix); got != filepath.Join(prefix, "2024") {
		t.Errorf("latestYearDir = %q, want newest valid year", got)
	}

	if got := latestYearDir(filepath.Join(prefix, "missing")); got != "" {
		t.Errorf("latestYearDir on missing prefix = %q, want empty", got)
	}
}

func TestListPackages(t *testing.T) {
	root := makeTree(t, t.TempDir(), "2024")
	tlpkg := filepath.Join(root, "tlpkg")
	if err := os.MkdirAll(tlpkg, 0755); err != nil {
		t.Fatal(err)
	}

	tlpdb := `name 00texlive.config
depend release/2024
name minted
category Package
shortdesc Highlighted source code
name amsmath
shortdesc AMS mathematical facilities
name hyphen.german
shortdesc internal entry
`
	if err := os.WriteFile(filepath.Join(tlpkg, "texlive.tlpdb"), []byte(tlpdb), 0644); err != nil {
		t.Fatal(err)
	}

	inst, err := Detect(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := inst.ListPackages()
	if err != nil {
		t.Fatalf("ListPackages error: %v", err)
	}
	want := []PackageInfo{
		{Name: "amsmath", ShortDesc: "AMS mathematical facilities"},
		{Name: "minted", ShortDesc: "Highlighted source code"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListPackages = %+v, want %+v", got, want)
	}
}

func TestVersionFromBanner(t *testing.T) {
	banner := "pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)\nkpathsea version 6.4.0\n"
	if got := versionFromBanner(banner); got != "2024" {
		t.Errorf("versionFromBanner = %q, want 2024", got)
	}
	if got := versionFromBanner("pdfTeX 1.40 (MiKTeX 24.1)"); got != "" {
		t.Errorf("versionFromBanner on foreign banner = %q, want empty", got)
	}
}

func TestVersionFromTLPDB(t *testing.T) {
	// Root path without a year component falls back to the tlpdb
	dir := t.TempDir()
	root := filepath.Join(dir, "texlive-stable")
	if err := os.MkdirAll(filepath.Join(root, "texmf-dist"), 0755); err != nil {
		t.Fatal(err)
	}
	tlpkg := filepath.Join(root, "tlpkg")
	if err := os.MkdirAll(tlpkg, 0755); err != nil {
		t.Fatal(err)
	}
	db := "name 00texlive.installation\ndepend release/2022\n"
	if err := os.WriteFile(filepath.Join(tlpkg, "texlive.tlpdb"), []byte(db), 0644); err != nil {
		t.Fatal(err)
	}

	inst, err := Detect(root)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Version != "2022" {
		t.Errorf("Version = %q, want 2022 from tlpdb", inst.Version)
	}
}
