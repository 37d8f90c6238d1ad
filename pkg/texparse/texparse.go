// Package texparse extracts dependency declarations from TeX sources.
//
// Parsing is purely syntactic: the parser matches declaration commands
// like \usepackage and \documentclass line by line and never expands
// macros. That is enough to seed package resolution for the vast
// majority of real documents; anything the static pass misses is
// picked up later by the compile-and-classify loop in pkg/detect.
package texparse

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/texpm/texpm/pkg/errors"
)

// DependencyKind identifies which declaration command produced a dependency.
type DependencyKind string

const (
	KindUsePackage        DependencyKind = "usepackage"
	KindRequirePackage    DependencyKind = "requirepackage"
	KindDocumentClass     DependencyKind = "documentclass"
	KindLoadClass         DependencyKind = "loadclass"
	KindInput             DependencyKind = "input"
	KindInclude           DependencyKind = "include"
	KindBibliography      DependencyKind = "bibliography"
	KindBibliographyStyle DependencyKind = "bibliographystyle"
)

// Installable reports whether the kind refers to an installable package
// or class. Input, Include, Bibliography and BibliographyStyle reference
// project-local files and are excluded from package resolution.
func (k DependencyKind) Installable() bool {
	switch k {
	case KindUsePackage, KindRequirePackage, KindDocumentClass, KindLoadClass:
		return true
	}
	return false
}

// Dependency is one declaration occurrence in a source file.
// The same name may appear multiple times across a document.
type Dependency struct {
	Name    string
	Kind    DependencyKind
	Line    int    // 1-indexed source line
	Context string // trimmed source line the match came from
}

// extractor ties one regex to a dependency kind. Multi extractors
// accept a comma-separated name list inside the braces.
type extractor struct {
	re    *regexp.Regexp
	kind  DependencyKind
	multi bool
}

// Optional bracketed option groups between the command and the opening
// brace are tolerated and ignored.
var extractors = []extractor{
	{regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{([^}]+)\}`), KindUsePackage, true},
	{regexp.MustCompile(`\\RequirePackage(?:\[[^\]]*\])?\{([^}]+)\}`), KindRequirePackage, true},
	{regexp.MustCompile(`\\documentclass(?:\[[^\]]*\])?\{([^}]+)\}`), KindDocumentClass, false},
	{regexp.MustCompile(`\\LoadClass(?:\[[^\]]*\])?\{([^}]+)\}`), KindLoadClass, false},
	{regexp.MustCompile(`\\input\{([^}]+)\}`), KindInput, false},
	{regexp.MustCompile(`\\include\{([^}]+)\}`), KindInclude, false},
	{regexp.MustCompile(`\\bibliography\{([^}]+)\}`), KindBibliography, true},
	{regexp.MustCompile(`\\bibliographystyle\{([^}]+)\}`), KindBibliographyStyle, false},
}

// Parse scans source text and returns every dependency declaration in
// document order. It is pure and never fails on well-formed UTF-8.
func Parse(text string) []Dependency {
	var deps []Dependency

	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if strings.TrimSpace(line) == "" {
			continue
		}
		deps = append(deps, parseLine(line, lineNo)...)
	}
	return deps
}

func parseLine(line string, lineNo int) []Dependency {
	var deps []Dependency
	context := strings.TrimSpace(line)

	for _, ex := range extractors {
		for _, m := range ex.re.FindAllStringSubmatch(line, -1) {
			if ex.multi {
				for _, name := range strings.Split(m[1], ",") {
					name = strings.TrimSpace(name)
					if name == "" {
						continue
					}
					deps = append(deps, Dependency{Name: name, Kind: ex.kind, Line: lineNo, Context: context})
				}
				continue
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			deps = append(deps, Dependency{Name: name, Kind: ex.kind, Line: lineNo, Context: context})
		}
	}
	return deps
}

// stripComment truncates the line at the first unescaped % sign.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		if i > 0 && line[i-1] == '\\' {
			continue
		}
		return line[:i]
	}
	return line
}

// ParseFile reads and parses a single source file.
func ParseFile(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "failed to read %s", path)
	}
	return Parse(string(data)), nil
}

// sourceExtensions lists the file extensions scanned by ParseProject,
// matched case-insensitively.
var sourceExtensions = map[string]bool{
	".tex":   true,
	".latex": true,
	".sty":   true,
	".cls":   true,
}

// ParseProject walks the directory tree rooted at dir and parses every
// TeX source file found. Directories named "packages" or ".git", and
// any directory whose name starts with a dot, are skipped. Files
// reachable through multiple links are parsed once.
func ParseProject(dir string) ([]Dependency, error) {
	var deps []Dependency
	seen := make(map[string]bool)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != dir && (name == "packages" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		resolved, rerr := filepath.EvalSymlinks(path)
		if rerr != nil {
			resolved = path
		}
		if seen[resolved] {
			return nil
		}
		seen[resolved] = true

		fileDeps, perr := ParseFile(path)
		if perr != nil {
			return perr
		}
		deps = append(deps, fileDeps...)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to scan project %s", dir)
	}
	return deps, nil
}

// UniquePackages reduces a dependency list to the sorted, deduplicated
// set of installable package names.
func UniquePackages(deps []Dependency) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range deps {
		if !d.Kind.Installable() || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// corePackages are the built-in classes and class options shipped with
// every LaTeX distribution. They never require installation.
var corePackages = map[string]bool{
	"latex":       true,
	"latex2e":     true,
	"article":     true,
	"book":        true,
	"report":      true,
	"letter":      true,
	"minimal":     true,
	"size10":      true,
	"size11":      true,
	"size12":      true,
	"a4paper":     true,
	"letterpaper": true,
	"twoside":     true,
	"oneside":     true,
	"draft":       true,
	"final":       true,
	"leqno":       true,
	"fleqn":       true,
	"openbib":     true,
	"titlepage":   true,
	"notitlepage": true,
}

// FilterCorePackages removes built-in class and option names from a
// package name list. The operation is idempotent and order-preserving.
func FilterCorePackages(names []string) []string {
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if corePackages[strings.ToLower(name)] {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}
