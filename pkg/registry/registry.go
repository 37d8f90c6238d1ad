// Package registry manages locally installed TeX packages.
//
// Packages live under a packages/ directory (project-local by default,
// or a shared per-user directory with --global). A registry.json file
// beside them records what is installed. Network downloads are stubbed:
// installation generates placeholder style files that satisfy
// \usepackage lookups via a TEXINPUTS override.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/texpm/texpm/pkg/errors"
)

// FileName is the registry index file inside the packages directory.
const FileName = "registry.json"

// Entry records one installed package.
type Entry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Files       []string  `json:"files"`
	InstalledAt time.Time `json:"installed_at"`
}

// Manager owns one packages directory and its registry index.
type Manager struct {
	dir     string
	entries map[string]Entry
}

// Open loads (or initializes) the registry in the given packages
// directory.
func Open(dir string) (*Manager, error) {
	m := &Manager{dir: dir, entries: make(map[string]Entry)}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to read package registry")
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "corrupt package registry %s", filepath.Join(dir, FileName))
	}
	return m, nil
}

// GlobalDir returns the shared per-user packages directory.
func GlobalDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "cannot locate user config directory")
	}
	return filepath.Join(base, "texpm", "packages"), nil
}

// Dir returns the packages directory this manager owns.
func (m *Manager) Dir() string {
	return m.dir
}

// IsInstalled reports whether a package is in the registry.
func (m *Manager) IsInstalled(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// Get returns the registry entry for a package.
func (m *Manager) Get(name string) (Entry, error) {
	e, ok := m.entries[name]
	if !ok {
		return Entry{}, errors.New(errors.ErrCodePackageNotFound, "package %s is not installed", name)
	}
	return e, nil
}

// List returns all installed packages sorted by name.
func (m *Manager) List() []Entry {
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Search returns installed packages whose name contains the query,
// case-insensitively, sorted by name.
func (m *Manager) Search(query string) []Entry {
	query = strings.ToLower(query)
	var matches []Entry
	for _, e := range m.List() {
		if strings.Contains(strings.ToLower(e.Name), query) {
			matches = append(matches, e)
		}
	}
	return matches
}

// Install writes the package files and records the registry entry.
// Reinstalling an already installed package overwrites it.
func (m *Manager) Install(name, version string) (Entry, error) {
	if version == "" {
		version = "latest"
	}

	pkgDir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInternal, err, "failed to create %s", pkgDir)
	}

	styPath := filepath.Join(pkgDir, name+".sty")
	if err := os.WriteFile(styPath, []byte(styContent(name)), 0644); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInternal, err, "failed to write %s", styPath)
	}

	entry := Entry{
		Name:        name,
		Version:     version,
		Files:       []string{name + ".sty"},
		InstalledAt: time.Now().UTC(),
	}
	m.entries[name] = entry
	if err := m.save(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Remove deletes a package's files and registry entry.
func (m *Manager) Remove(name string) error {
	if _, ok := m.entries[name]; !ok {
		return errors.New(errors.ErrCodePackageNotFound, "package %s is not installed", name)
	}
	if err := os.RemoveAll(filepath.Join(m.dir, name)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to remove package files for %s", name)
	}
	delete(m.entries, name)
	return m.save()
}

// Update reinstalls a package at the latest version.
func (m *Manager) Update(name string) (Entry, error) {
	if _, ok := m.entries[name]; !ok {
		return Entry{}, errors.New(errors.ErrCodePackageNotFound, "package %s is not installed", name)
	}
	return m.Install(name, "latest")
}

// UpdateAll reinstalls every installed package and returns the updated
// entries in name order.
func (m *Manager) UpdateAll() ([]Entry, error) {
	var updated []Entry
	for _, e := range m.List() {
		entry, err := m.Update(e.Name)
		if err != nil {
			return updated, err
		}
		updated = append(updated, entry)
	}
	return updated, nil
}

// TexInputs builds a TEXINPUTS value exposing the packages directory
// to the compiler, keeping the existing search path.
func (m *Manager) TexInputs() string {
	return "TEXINPUTS=.:" + m.dir + "//:" + os.Getenv("TEXINPUTS")
}

func (m *Manager) save() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to create packages directory")
	}
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to encode package registry")
	}
	return os.WriteFile(filepath.Join(m.dir, FileName), data, 0644)
}
