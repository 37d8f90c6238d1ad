package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/texpm/texpm/pkg/errors"
)

func TestInstallAndReload(t *testing.T) {
	dir := t.TempDir()

	m, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.IsInstalled("minted") {
		t.Error("fresh registry should be empty")
	}

	entry, err := m.Install("minted", "")
	if err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if entry.Version != "latest" {
		t.Errorf("Version = %q, want latest default", entry.Version)
	}

	// Style file exists and provides the package
	data, err := os.ReadFile(filepath.Join(dir, "minted", "minted.sty"))
	if err != nil {
		t.Fatalf("style file missing: %v", err)
	}
	if !strings.Contains(string(data), `\ProvidesPackage{minted}`) {
		t.Errorf("style file content:\n%s", data)
	}

	// A fresh manager sees the persisted registry
	reloaded, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsInstalled("minted") {
		t.Error("registry.json not persisted")
	}
}

func TestKnownTemplate(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir)

	if _, err := m.Install("booktabs", "1.0"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "booktabs", "booktabs.sty"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `\toprule`) {
		t.Error("booktabs template should define \\toprule")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir)
	if _, err := m.Install("amsmath", ""); err != nil {
		t.Fatal(err)
	}

	if err := m.Remove("amsmath"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if m.IsInstalled("amsmath") {
		t.Error("package still registered after Remove")
	}
	if _, err := os.Stat(filepath.Join(dir, "amsmath")); !os.IsNotExist(err) {
		t.Error("package directory still present after Remove")
	}

	if err := m.Remove("amsmath"); !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("err = %v, want package not found", err)
	}
}

func TestListAndSearch(t *testing.T) {
	m, _ := Open(t.TempDir())
	for _, name := range []string{"xcolor", "amsmath", "amssymb"} {
		if _, err := m.Install(name, ""); err != nil {
			t.Fatal(err)
		}
	}

	list := m.List()
	if len(list) != 3 || list[0].Name != "amsmath" || list[2].Name != "xcolor" {
		t.Errorf("List not sorted: %+v", list)
	}

	matches := m.Search("AMS")
	if len(matches) != 2 {
		t.Errorf("Search(AMS) = %+v, want amsmath and amssymb", matches)
	}
}

func TestUpdate(t *testing.T) {
	m, _ := Open(t.TempDir())

	if _, err := m.Update("ghost"); !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("updating uninstalled package: err = %v", err)
	}

	if _, err := m.Install("url", "1.0"); err != nil {
		t.Fatal(err)
	}
	entry, err := m.Update("url")
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if entry.Version != "latest" {
		t.Errorf("Version = %q after update", entry.Version)
	}

	updated, err := m.UpdateAll()
	if err != nil || len(updated) != 1 {
		t.Errorf("UpdateAll = %+v, %v", updated, err)
	}
}

func TestTexInputs(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir)

	v := m.TexInputs()
	if !strings.HasPrefix(v, "TEXINPUTS=.:"+dir+"//:") {
		t.Errorf("TexInputs = %q", v)
	}
}

func TestCorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(dir); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want invalid config", err)
	}
}
