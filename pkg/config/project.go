package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/errors"
)

// ProjectFileName is the per-project config file at the project root.
const ProjectFileName = "texpm.toml"

// Project is the per-project configuration.
type Project struct {
	Package      PackageSection    `toml:"package"`
	Dependencies map[string]string `toml:"dependencies"`
	Repositories []Repository      `toml:"repositories,omitempty"`
	Compilation  Compilation       `toml:"compilation"`
}

// PackageSection describes the document project itself, plus per
// project overrides of the global settings.
type PackageSection struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`

	// PackageDir is where packages install, relative to the project
	// root. Empty means "packages".
	PackageDir string `toml:"package_dir,omitempty"`

	// TexLivePath overrides TeX Live discovery for this project.
	TexLivePath string `toml:"texlive_path,omitempty"`

	// MirrorURL overrides mirror selection for this project.
	MirrorURL string `toml:"mirror_url,omitempty"`

	// InstallGlobal overrides the global install_global setting. Nil
	// defers to the global config.
	InstallGlobal *bool `toml:"install_global,omitempty"`
}

// Repository is a package source, tried in priority order.
type Repository struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Priority int    `toml:"priority"`
}

// DefaultRepositories returns the package sources written by
// `texpm init`.
func DefaultRepositories() []Repository {
	return []Repository{
		{Name: "ctan", URL: "https://ctan.org/", Priority: 1},
		{Name: "texlive", URL: "https://mirror.ctan.org/systems/texlive/tlnet/", Priority: 2},
	}
}

// Compilation configures the compile chain for the project.
type Compilation struct {
	Chain         []compile.Step `toml:"chain"`
	AutoClean     bool           `toml:"auto_clean"`
	CleanPatterns []string       `toml:"clean_patterns"`
}

// NewProject returns the config written by `texpm init`.
func NewProject(name, engine string) Project {
	if engine == "" {
		engine = "pdflatex"
	}
	return Project{
		Package:      PackageSection{Name: name, Version: "0.1.0"},
		Dependencies: make(map[string]string),
		Repositories: DefaultRepositories(),
		Compilation: Compilation{
			Chain: []compile.Step{
				{Tool: engine, Args: []string{"-interaction=nonstopmode", "main.tex"}},
			},
			AutoClean:     false,
			CleanPatterns: compile.DefaultCleanPatterns(),
		},
	}
}

// Chain returns the project compile chain, falling back to the default
// when none is configured.
func (p Project) Chain() compile.Chain {
	if len(p.Compilation.Chain) == 0 {
		return compile.DefaultChain()
	}
	patterns := p.Compilation.CleanPatterns
	if len(patterns) == 0 {
		patterns = compile.DefaultCleanPatterns()
	}
	return compile.Chain{
		Steps:         p.Compilation.Chain,
		AutoClean:     p.Compilation.AutoClean,
		CleanPatterns: patterns,
	}
}

// PackagesDir returns the package directory name, default "packages".
func (p Project) PackagesDir() string {
	if p.Package.PackageDir != "" {
		return p.Package.PackageDir
	}
	return "packages"
}

// InstallsGlobally resolves the project's install_global override
// against the global default.
func (p Project) InstallsGlobally(globalDefault bool) bool {
	if p.Package.InstallGlobal != nil {
		return *p.Package.InstallGlobal
	}
	return globalDefault
}

// ProjectKeys lists the settable project config keys.
func ProjectKeys() []string {
	return []string{"name", "version", "compile", "package_dir", "texlive_path", "mirror_url", "install_global"}
}

// Get returns the value for a project config key.
func (p Project) Get(key string) (string, error) {
	switch key {
	case "name":
		return p.Package.Name, nil
	case "version":
		return p.Package.Version, nil
	case "compile":
		steps := make([]string, 0, len(p.Compilation.Chain))
		for _, s := range p.Compilation.Chain {
			steps = append(steps, s.String())
		}
		return strings.Join(steps, " | "), nil
	case "package_dir":
		return p.Package.PackageDir, nil
	case "texlive_path":
		return p.Package.TexLivePath, nil
	case "mirror_url":
		return p.Package.MirrorURL, nil
	case "install_global":
		if p.Package.InstallGlobal == nil {
			return "", nil
		}
		return strconv.FormatBool(*p.Package.InstallGlobal), nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown project config key %q", key)
}

// Set updates a project config key. The caller must Save afterwards.
func (p *Project) Set(key, value string) error {
	switch key {
	case "name":
		p.Package.Name = value
	case "version":
		p.Package.Version = value
	case "compile":
		chain, err := compile.ParseChain(value)
		if err != nil {
			return err
		}
		p.Compilation.Chain = chain.Steps
	case "package_dir":
		p.Package.PackageDir = value
	case "texlive_path":
		p.Package.TexLivePath = value
	case "mirror_url":
		p.Package.MirrorURL = value
	case "install_global":
		if value == "" {
			p.Package.InstallGlobal = nil
			return nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "install_global must be true or false")
		}
		p.Package.InstallGlobal = &b
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown project config key %q", key)
	}
	return nil
}

// DependencyNames returns the declared dependencies, sorted.
func (p Project) DependencyNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddDependency records a dependency with its version constraint.
func (p *Project) AddDependency(name, constraint string) {
	if p.Dependencies == nil {
		p.Dependencies = make(map[string]string)
	}
	if constraint == "" {
		constraint = "*"
	}
	p.Dependencies[name] = constraint
}

// RemoveDependency drops a dependency. Returns false if it was absent.
func (p *Project) RemoveDependency(name string) bool {
	if _, ok := p.Dependencies[name]; !ok {
		return false
	}
	delete(p.Dependencies, name)
	return true
}

// LoadProject reads the project config from dir.
func LoadProject(dir string) (Project, error) {
	path := filepath.Join(dir, ProjectFileName)
	var p Project
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Project{}, errors.New(errors.ErrCodeNotFound, "no %s found in %s", ProjectFileName, dir)
	}
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Project{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse %s", path)
	}
	return p, nil
}

// Save writes the project config to dir.
func (p Project) Save(dir string) error {
	f, err := os.Create(filepath.Join(dir, ProjectFileName))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to write %s", ProjectFileName)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}

// FindProjectRoot walks upward from start looking for a directory
// containing texpm.toml.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid start directory")
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.ErrCodeNotFound, "no %s found in %s or any parent directory", ProjectFileName, start)
		}
		dir = parent
	}
}
