// Package resolve orders package installations by dependency.
//
// The resolver works against a local catalog of known package versions.
// There is no constraint solving: when several versions of a package
// are available the latest registered one is selected, and differing
// versions encountered for one name are surfaced as conflicts instead
// of being reconciled.
package resolve

import (
	"strings"

	"github.com/texpm/texpm/pkg/errors"
)

// Dependency is one edge in the package graph.
type Dependency struct {
	Name              string
	VersionConstraint string
	Optional          bool
}

// ResolvedPackage is a concrete installable version of a package.
type ResolvedPackage struct {
	Name         string
	Version      string
	Dependencies []Dependency
}

// Conflict records two differing versions requested for one package.
type Conflict struct {
	Name     string
	VersionA string
	VersionB string
}

// Resolver holds the catalog of available package versions.
type Resolver struct {
	catalog map[string][]ResolvedPackage
}

// New creates an empty resolver.
func New() *Resolver {
	return &Resolver{catalog: make(map[string][]ResolvedPackage)}
}

// Add registers an available package version. Registration order
// matters: the last version added for a name is the one selected.
func (r *Resolver) Add(pkg ResolvedPackage) {
	r.catalog[pkg.Name] = append(r.catalog[pkg.Name], pkg)
}

// latest returns the selected version for a name.
func (r *Resolver) latest(name string) (ResolvedPackage, bool) {
	versions := r.catalog[name]
	if len(versions) == 0 {
		return ResolvedPackage{}, false
	}
	return versions[len(versions)-1], true
}

// Resolve computes the installation order for the given roots: the
// dependency closure, topologically sorted so every package appears
// after its dependencies. Ties are broken by discovery order. A true
// dependency cycle is an error, not a silent omission.
func (r *Resolver) Resolve(roots []string) ([]ResolvedPackage, error) {
	closure, order, err := r.closure(roots)
	if err != nil {
		return nil, err
	}
	return r.sort(closure, order)
}

// closure walks the graph breadth first from the roots and returns the
// selected package per name plus the discovery order.
func (r *Resolver) closure(roots []string) (map[string]ResolvedPackage, []string, error) {
	closure := make(map[string]ResolvedPackage)
	var order []string

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := closure[name]; ok {
			continue
		}

		pkg, ok := r.latest(name)
		if !ok {
			return nil, nil, errors.New(errors.ErrCodePackageNotFound, "package %s not found in catalog", name)
		}
		closure[name] = pkg
		order = append(order, name)

		for _, dep := range pkg.Dependencies {
			if dep.Optional {
				continue
			}
			queue = append(queue, dep.Name)
		}
	}
	return closure, order, nil
}

// sort applies Kahn's algorithm over the closure. The ready queue is
// seeded and extended in discovery order, which keeps the output stable
// across runs without sorting by name.
func (r *Resolver) sort(closure map[string]ResolvedPackage, order []string) ([]ResolvedPackage, error) {
	inDegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))

	for _, name := range order {
		inDegree[name] = 0
	}
	for _, name := range order {
		for _, dep := range closure[name].Dependencies {
			if dep.Optional {
				continue
			}
			dependents[dep.Name] = append(dependents[dep.Name], name)
			inDegree[name]++
		}
	}

	var queue []string
	for _, name := range order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	sorted := make([]ResolvedPackage, 0, len(closure))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted = append(sorted, closure[name])

		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) < len(closure) {
		var stuck []string
		for _, name := range order {
			if inDegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, errors.New(errors.ErrCodeDependencyCycle,
			"dependency cycle involving %s", strings.Join(stuck, ", "))
	}
	return sorted, nil
}

// Conflicts reports every pair of differing versions that appear for
// the same package name in a resolved list.
func Conflicts(packages []ResolvedPackage) []Conflict {
	seen := make(map[string][]string)
	var conflicts []Conflict

	for _, pkg := range packages {
		for _, prev := range seen[pkg.Name] {
			if prev != pkg.Version {
				conflicts = append(conflicts, Conflict{Name: pkg.Name, VersionA: prev, VersionB: pkg.Version})
			}
		}
		seen[pkg.Name] = append(seen[pkg.Name], pkg.Version)
	}
	return conflicts
}
