package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/config"
)

// compileOpts holds the command-line flags for the compile command.
type compileOpts struct {
	clean bool   // remove auxiliary files after compiling
	watch bool   // recompile on source changes
	chain string // pipeline override, steps separated by |
}

// compileCommand creates the compile command.
func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run the configured compile chain",
		Long: `Run the project's compile chain (texpm.toml [compilation] section).
Each step runs in the project directory with the packages/ directory on
TEXINPUTS; the chain stops at the first failing step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			root, err := projectRoot()
			if err != nil {
				return err
			}
			if opts.watch {
				return c.watchAndCompile(ctx, root, opts)
			}
			return c.compileOnce(ctx, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.clean, "clean", false, "remove auxiliary files after compiling")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "watch sources and recompile on change")
	cmd.Flags().StringVar(&opts.chain, "chain", "", `override the compile chain, steps separated by | (e.g. "xelatex main.tex | bibtex main")`)
	return cmd
}

func (c *CLI) compileOnce(ctx context.Context, root string, opts compileOpts) error {
	logger := loggerFromContext(ctx)

	project, err := config.LoadProject(root)
	if err != nil {
		return err
	}
	reg, err := openRegistry(root, false)
	if err != nil {
		return err
	}

	chain := project.Chain()
	if opts.chain != "" {
		chain, err = compile.ParseChain(opts.chain)
		if err != nil {
			return err
		}
	}
	resolved := chain.Resolve(compile.DefaultVars(root))
	runner := &compile.Runner{Env: []string{reg.TexInputs()}}

	prog := newProgress(logger)
	results, err := runner.Run(ctx, resolved, root)
	if err != nil {
		return err
	}

	for _, res := range results {
		if res.Success() {
			logger.Debugf("Step %d ok: %s", res.Index+1, res.Step.String())
			continue
		}
		printError("Step %d failed: %s", res.Index+1, res.Step.String())
		if out := strings.TrimSpace(res.Output); out != "" {
			fmt.Fprintln(os.Stderr, StyleDim.Render(tail(out, 30)))
		}
		return res.Err
	}
	prog.done(fmt.Sprintf("Compiled with %d steps", len(results)))

	if opts.clean || chain.AutoClean {
		removed, err := compile.Clean(root, chain.CleanPatterns)
		if err != nil {
			return err
		}
		printDetail("Removed %d auxiliary files", len(removed))
	}
	printSuccess("Build complete")
	return nil
}

// watchAndCompile recompiles whenever a TeX source under root changes.
// Events are debounced so editor save bursts trigger one build.
func (c *CLI) watchAndCompile(ctx context.Context, root string, opts compileOpts) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return err
		}
		name := info.Name()
		if path != root && (name == "packages" || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return err
	}

	if err := c.compileOnce(ctx, root, opts); err != nil {
		printWarning("Initial build failed: %v", err)
	}
	printInfo("Watching %s for changes (ctrl-c to stop)", root)

	var timer *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watchRelevant(event) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printWarning("Watch error: %v", err)
		case <-rebuild:
			if err := c.compileOnce(ctx, root, opts); err != nil {
				printWarning("Build failed: %v", err)
			}
		}
	}
}

// watchRelevant filters events down to TeX source writes.
func watchRelevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".tex", ".latex", ".sty", ".cls", ".bib":
		return true
	}
	return false
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
