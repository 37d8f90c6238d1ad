package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/config"
	"github.com/texpm/texpm/pkg/detect"
	"github.com/texpm/texpm/pkg/registry"
	"github.com/texpm/texpm/pkg/render"
	"github.com/texpm/texpm/pkg/texlive"
	"github.com/texpm/texpm/pkg/texparse"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	detailed bool   // print every declaration with line and context
	compile  bool   // additionally probe with the compiler
	dotOut   string // write the dependency graph as DOT
	svgOut   string // write the dependency graph as SVG
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Report the packages a project depends on",
		Long: `Scan the project sources for package declarations and report which
of them are installed. With --compile the compiler is additionally run
to catch packages the static scan cannot see.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runAnalyze(ctx, opts, dir)
		},
	}

	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show every declaration with source location")
	cmd.Flags().BoolVar(&opts.compile, "compile", false, "probe with the compiler for empirically missing packages")
	cmd.Flags().StringVar(&opts.dotOut, "dot", "", "write the dependency graph in DOT format to a file")
	cmd.Flags().StringVar(&opts.svgOut, "svg", "", "render the dependency graph as SVG to a file")
	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, opts analyzeOpts, dir string) error {
	logger := loggerFromContext(ctx)

	root, err := config.FindProjectRoot(dir)
	if err != nil {
		// Analysis works on plain directories too
		root = dir
	}

	prog := newProgress(logger)
	deps, err := texparse.ParseProject(root)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Parsed %d declarations", len(deps)))

	if opts.detailed {
		for _, d := range deps {
			fmt.Printf("%s %s %s\n",
				StyleValue.Render(d.Name),
				StyleDim.Render(fmt.Sprintf("%-18s line %d", string(d.Kind), d.Line)),
				StyleDim.Render(d.Context))
		}
		printNewline()
	}

	packages := texparse.FilterCorePackages(texparse.UniquePackages(deps))
	if len(packages) == 0 {
		printInfo("No installable package dependencies found")
	} else {
		printInfo("Packages required by %s:", root)
		installed := installedChecker(root)
		missing := 0
		for _, name := range packages {
			if installed(name) {
				fmt.Println("  " + StyleSuccess.Render(iconSuccess) + " " + name)
			} else {
				fmt.Println("  " + styleIconError.Render(iconError) + " " + name + " " + StyleDim.Render("missing"))
				missing++
			}
		}
		printNewline()
		if missing > 0 {
			printNextStep("Install missing packages", "texpm install")
		}
	}

	if opts.compile {
		if err := c.analyzeByCompiling(ctx, root); err != nil {
			return err
		}
	}

	return writeGraphOutputs(ctx, opts, root, deps)
}

// installedChecker combines the project registry and the TeX Live
// installation into one membership test.
func installedChecker(root string) func(string) bool {
	var checks []func(string) bool

	if reg, err := registry.Open(rootPackagesDir(root)); err == nil {
		checks = append(checks, reg.IsInstalled)
	}
	global, _ := config.LoadGlobal()
	texRoot := global.TexLiveRoot
	if project, err := config.LoadProject(root); err == nil && project.Package.TexLivePath != "" {
		texRoot = project.Package.TexLivePath
	}
	if inst, err := texlive.Detect(texRoot); err == nil {
		checks = append(checks, inst.IsInstalled)
	}

	return func(name string) bool {
		for _, check := range checks {
			if check(name) {
				return true
			}
		}
		return false
	}
}

func rootPackagesDir(root string) string {
	if project, err := config.LoadProject(root); err == nil {
		return filepath.Join(root, project.PackagesDir())
	}
	return filepath.Join(root, "packages")
}

// analyzeByCompiling runs the detection loop without installing, so a
// single probe reports what the compiler itself considers missing.
func (c *CLI) analyzeByCompiling(ctx context.Context, root string) error {
	project, err := config.LoadProject(root)
	if err != nil {
		return err
	}
	reg, err := registry.Open(rootPackagesDir(root))
	if err != nil {
		return err
	}

	runner := &compile.Runner{Env: []string{reg.TexInputs()}}
	detector := detect.NewDetector(runner, project.Chain(), root)
	detector.Installed = reg.IsInstalled

	result, err := detector.Run(ctx)
	if err != nil {
		return err
	}
	if result.Converged() {
		printSuccess("Document compiles cleanly")
		return nil
	}
	printWarning("Compiler reports missing packages:")
	for _, name := range result.Missing {
		printDetail("%s", name)
	}
	return nil
}

// writeGraphOutputs exports the dependency graph when requested.
func writeGraphOutputs(ctx context.Context, opts analyzeOpts, root string, deps []texparse.Dependency) error {
	if opts.dotOut == "" && opts.svgOut == "" {
		return nil
	}

	graph := render.NewGraph(rootName(root), deps)
	dot := graph.ToDOT()

	if opts.dotOut != "" {
		if err := os.WriteFile(opts.dotOut, []byte(dot), 0644); err != nil {
			return err
		}
		printFile(opts.dotOut)
	}
	if opts.svgOut != "" {
		svg, err := render.ToSVG(ctx, dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.svgOut, svg, 0644); err != nil {
			return err
		}
		printFile(opts.svgOut)
	}
	return nil
}

func rootName(root string) string {
	if project, err := config.LoadProject(root); err == nil && project.Package.Name != "" {
		return project.Package.Name
	}
	return "project"
}
