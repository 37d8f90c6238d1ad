package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/config"
	"github.com/texpm/texpm/pkg/detect"
	"github.com/texpm/texpm/pkg/registry"
	"github.com/texpm/texpm/pkg/resolve"
	"github.com/texpm/texpm/pkg/texparse"
)

// knownDependencies records transitive requirements of common packages.
// Anything not listed resolves as a leaf.
var knownDependencies = map[string][]string{
	"amssymb":  {"amsfonts"},
	"amsmath":  {"amstext"},
	"minted":   {"fvextra", "upquote"},
	"fvextra":  {"fancyvrb"},
	"hyperref": {"url"},
	"tikz":     {"pgf"},
	"xcolor":   {},
	"siunitx":  {"array"},
}

// installOpts holds the command-line flags for the install command.
type installOpts struct {
	global  bool   // install into the shared per-user directory
	compile bool   // discover missing packages by compiling
	path    string // custom packages directory
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var opts installOpts

	cmd := &cobra.Command{
		Use:   "install [packages...]",
		Short: "Install LaTeX packages",
		Long: `Install packages into the project packages/ directory.

Without arguments the project sources are scanned for \usepackage and
related declarations and every referenced package is installed. With
--compile the compiler output drives discovery instead: the project is
compiled repeatedly and packages reported missing are installed between
attempts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runInstall(ctx, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.global, "global", "g", false, "install into the shared per-user package directory")
	cmd.Flags().BoolVar(&opts.compile, "compile", false, "discover packages by compiling instead of static scanning")
	cmd.Flags().StringVar(&opts.path, "path", "", "install into a custom packages directory")
	return cmd
}

func (c *CLI) runInstall(ctx context.Context, opts installOpts, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	project, err := config.LoadProject(root)
	if err != nil {
		return err
	}
	globalCfg, err := config.LoadGlobal()
	if err != nil {
		return err
	}
	// The flag wins; otherwise the project override, then the global
	// install_global default decide where packages go.
	installGlobal := opts.global || project.InstallsGlobally(globalCfg.InstallGlobal)

	var reg *registry.Manager
	if opts.path != "" {
		reg, err = registry.Open(opts.path)
	} else {
		reg, err = openRegistry(root, installGlobal)
	}
	if err != nil {
		return err
	}

	if opts.compile {
		return c.installByCompiling(ctx, root, &project, reg)
	}

	targets := args
	if len(targets) == 0 {
		targets, err = scanProjectPackages(ctx, root, reg)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			printInfo("Nothing to install")
			return nil
		}
	}

	ordered, err := orderForInstall(targets)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	for _, pkg := range ordered {
		entry, err := reg.Install(pkg.Name, pkg.Version)
		if err != nil {
			return err
		}
		printSuccess("Installed %s %s", entry.Name, StyleDim.Render(entry.Version))
	}
	prog.done(fmt.Sprintf("Installed %d packages", len(ordered)))

	if !installGlobal {
		for _, name := range targets {
			project.AddDependency(name, "")
		}
		if err := project.Save(root); err != nil {
			return err
		}
	}
	return nil
}

// scanProjectPackages statically parses the project and returns the
// packages that are declared but not yet installed.
func scanProjectPackages(ctx context.Context, root string, reg *registry.Manager) ([]string, error) {
	logger := loggerFromContext(ctx)
	logger.Debugf("Scanning %s for dependency declarations", root)

	deps, err := texparse.ParseProject(root)
	if err != nil {
		return nil, err
	}
	names := texparse.FilterCorePackages(texparse.UniquePackages(deps))

	var missing []string
	for _, name := range names {
		if !reg.IsInstalled(name) {
			missing = append(missing, name)
		}
	}
	logger.Infof("Found %d declared packages, %d missing", len(names), len(missing))
	return missing, nil
}

// orderForInstall runs the requested packages through the dependency
// resolver so requirements install before their dependents.
func orderForInstall(targets []string) ([]resolve.ResolvedPackage, error) {
	r := resolve.New()

	var register func(name string)
	registered := make(map[string]bool)
	register = func(name string) {
		if registered[name] {
			return
		}
		registered[name] = true

		deps := make([]resolve.Dependency, 0, len(knownDependencies[name]))
		for _, dep := range knownDependencies[name] {
			deps = append(deps, resolve.Dependency{Name: dep})
			register(dep)
		}
		r.Add(resolve.ResolvedPackage{Name: name, Version: "latest", Dependencies: deps})
	}
	for _, name := range targets {
		register(name)
	}

	ordered, err := r.Resolve(targets)
	if err != nil {
		return nil, err
	}
	if conflicts := resolve.Conflicts(ordered); len(conflicts) > 0 {
		for _, c := range conflicts {
			printWarning("Version conflict for %s: %s vs %s", c.Name, c.VersionA, c.VersionB)
		}
	}
	return ordered, nil
}

// installByCompiling drives the detection loop, installing every
// package the compiler reports missing until the build converges.
func (c *CLI) installByCompiling(ctx context.Context, root string, project *config.Project, reg *registry.Manager) error {
	runner := &compile.Runner{Env: []string{reg.TexInputs()}}
	detector := detect.NewDetector(runner, project.Chain(), root)
	detector.Installed = reg.IsInstalled
	detector.Install = func(ctx context.Context, names []string) error {
		for _, name := range names {
			entry, err := reg.Install(name, "")
			if err != nil {
				return err
			}
			printSuccess("Installed %s %s", entry.Name, StyleDim.Render(entry.Version))
		}
		return nil
	}

	spin := startSpinner(ctx, "Compiling and resolving packages...")
	result, err := detector.Run(ctx)
	if err != nil {
		spin.fail("Compilation failed")
		return err
	}

	switch result.Outcome {
	case detect.OutcomeConverged:
		spin.success("Document compiles after %d iterations", result.Iterations)
	case detect.OutcomeStalled:
		spin.stop()
		printWarning("Resolution stalled after %d iterations; the remaining errors need manual attention", result.Iterations)
	case detect.OutcomeExhausted:
		spin.stop()
		printWarning("Iteration limit reached without convergence")
	}

	for _, name := range result.Missing {
		project.AddDependency(name, "")
	}
	if len(result.Missing) > 0 {
		if err := project.Save(root); err != nil {
			return err
		}
		printDetail("Recorded %d dependencies in %s", len(result.Missing), config.ProjectFileName)
	}
	return nil
}
