// Package config handles texpm configuration files.
//
// Two layers exist: a per-user global config under the OS config
// directory, and a per-project texpm.toml at the project root. Both
// are plain TOML.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/errors"
)

// GlobalFileName is the global config file name under GlobalDir.
const GlobalFileName = "config.toml"

// Global is the per-user configuration.
type Global struct {
	// Mirror is the preferred mirror name. Empty selects automatically.
	Mirror string `toml:"mirror"`

	// TexLiveRoot overrides TeX Live installation discovery.
	TexLiveRoot string `toml:"texlive_root"`

	// CacheBackend selects the cache implementation: file, redis, none.
	CacheBackend string `toml:"cache_backend"`

	// RedisAddr is the host:port used when CacheBackend is redis.
	RedisAddr string `toml:"redis_addr"`

	// DefaultEngine is the compiler used by generated project configs.
	DefaultEngine string `toml:"default_engine"`

	// CompileCommand, when set, seeds new projects with this chain
	// instead of the single DefaultEngine step. Steps are separated
	// by |, as accepted by compile.ParseChain.
	CompileCommand string `toml:"compile_command,omitempty"`

	// InstallGlobal makes install default to the shared per-user
	// package directory instead of the project's.
	InstallGlobal bool `toml:"install_global"`
}

// DefaultGlobal returns the configuration used before the user sets
// anything.
func DefaultGlobal() Global {
	return Global{
		CacheBackend:  "file",
		RedisAddr:     "localhost:6379",
		DefaultEngine: "pdflatex",
	}
}

// GlobalDir returns the directory holding the global config file.
func GlobalDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "cannot locate user config directory")
	}
	return filepath.Join(base, "texpm"), nil
}

// LoadGlobal reads the global config, returning defaults when the file
// does not exist yet.
func LoadGlobal() (Global, error) {
	dir, err := GlobalDir()
	if err != nil {
		return Global{}, err
	}
	return loadGlobalFrom(filepath.Join(dir, GlobalFileName))
}

func loadGlobalFrom(path string) (Global, error) {
	cfg := DefaultGlobal()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Global{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse %s", path)
	}
	return cfg, nil
}

// Save writes the global config to disk, creating the directory if
// needed.
func (g Global) Save() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return g.saveTo(filepath.Join(dir, GlobalFileName))
}

func (g Global) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to create config directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to write %s", path)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(g)
}

// GlobalKeys lists the settable global config keys.
func GlobalKeys() []string {
	return []string{"mirror", "texlive_root", "cache_backend", "redis_addr", "default_engine", "compile_command", "install_global"}
}

// Get returns the value for a key.
func (g Global) Get(key string) (string, error) {
	switch key {
	case "mirror":
		return g.Mirror, nil
	case "texlive_root":
		return g.TexLiveRoot, nil
	case "cache_backend":
		return g.CacheBackend, nil
	case "redis_addr":
		return g.RedisAddr, nil
	case "default_engine":
		return g.DefaultEngine, nil
	case "compile_command":
		return g.CompileCommand, nil
	case "install_global":
		return strconv.FormatBool(g.InstallGlobal), nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", key)
}

// Set updates the value for a key. The caller must Save afterwards.
func (g *Global) Set(key, value string) error {
	switch key {
	case "mirror":
		g.Mirror = value
	case "texlive_root":
		g.TexLiveRoot = value
	case "cache_backend":
		switch value {
		case "file", "redis", "none":
			g.CacheBackend = value
		default:
			return errors.New(errors.ErrCodeInvalidConfig, "cache_backend must be file, redis, or none")
		}
	case "redis_addr":
		g.RedisAddr = value
	case "default_engine":
		g.DefaultEngine = value
	case "compile_command":
		if value != "" {
			if _, err := compile.ParseChain(value); err != nil {
				return err
			}
		}
		g.CompileCommand = value
	case "install_global":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "install_global must be true or false")
		}
		g.InstallGlobal = b
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", key)
	}
	return nil
}
