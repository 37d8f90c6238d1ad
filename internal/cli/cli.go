package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/buildinfo"
	"github.com/texpm/texpm/pkg/cache"
	"github.com/texpm/texpm/pkg/config"
	"github.com/texpm/texpm/pkg/mirror"
	"github.com/texpm/texpm/pkg/registry"
	"github.com/texpm/texpm/pkg/texlive"
)

// appName is the application name used for directories and display.
const appName = "texpm"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "texpm manages LaTeX packages per project",
		Long:         `texpm is a package manager for LaTeX projects: it discovers the packages a document needs, installs them into a project-local directory, and drives the compile loop until the document builds.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c.bootstrap()
		return nil
	}

	root.AddCommand(c.initCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.compileCommand())
	root.AddCommand(c.mirrorCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// bootstrap writes the initial global config on first run, recording a
// detected TeX Live root so later commands skip discovery. Failures are
// logged and ignored; every command works without a config file.
func (c *CLI) bootstrap() {
	dir, err := config.GlobalDir()
	if err != nil {
		return
	}
	if _, err := os.Stat(filepath.Join(dir, config.GlobalFileName)); err == nil {
		return
	}

	global := config.DefaultGlobal()
	if inst, err := texlive.Detect(""); err == nil {
		global.TexLiveRoot = inst.Root
		c.Logger.Debugf("Detected TeX Live %s at %s", inst.Version, inst.Root)
	}
	if err := global.Save(); err != nil {
		c.Logger.Debugf("Could not write initial config: %v", err)
	}
}

// newCache builds the cache backend selected by the global config.
func newCache(ctx context.Context, global config.Global) cache.Cache {
	switch global.CacheBackend {
	case "none":
		return cache.NewNullCache()
	case "redis":
		if c, err := cache.NewRedisCache(ctx, global.RedisAddr); err == nil {
			return c
		}
		// Unreachable redis degrades to the file cache
		fallthrough
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache()
		}
		c, err := cache.NewFileCache(dir)
		if err != nil {
			return cache.NewNullCache()
		}
		return c
	}
}

// newMirrorManager builds the mirror manager over the configured cache.
func newMirrorManager(ctx context.Context, global config.Global) *mirror.Manager {
	return mirror.NewManager(newCache(ctx, global))
}

// openRegistry opens the packages directory for the project at root, or
// the shared per-user directory when global is set. The project config
// can relocate its directory through package_dir.
func openRegistry(root string, global bool) (*registry.Manager, error) {
	if global {
		dir, err := registry.GlobalDir()
		if err != nil {
			return nil, err
		}
		return registry.Open(dir)
	}
	dir := "packages"
	if project, err := config.LoadProject(root); err == nil {
		dir = project.PackagesDir()
	}
	return registry.Open(filepath.Join(root, dir))
}

// cacheDir returns the cache directory using XDG standard (~/.cache/texpm/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// projectRoot locates the enclosing project from the working directory.
func projectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.FindProjectRoot(cwd)
}
