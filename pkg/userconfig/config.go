// Package userconfig loads the user-level configuration file: cache size
// and path-skip globs, shared across all repositories a user touches.
package userconfig

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/marmos91/backpak/internal/bytesize"
)

// DefaultCacheSize is used when cache_size is absent from the user config.
const DefaultCacheSize bytesize.ByteSize = 1024 * 1024 * 1024

// Config is the user-level configuration: local cache sizing and paths to
// skip during backup, independent of any one repository.
type Config struct {
	CacheSize bytesize.ByteSize `toml:"cache_size"`
	Skips     []string          `toml:"skips"`
}

// Default returns the configuration used when no file is found or an
// empty path is explicitly requested.
func Default() *Config {
	return &Config{CacheSize: DefaultCacheSize}
}

// Load loads the user configuration.
//
// path == nil means "not specified": the default location
// ~/.config/backpak.toml is tried, falling back to Default() if absent.
// path pointing at "" means the caller explicitly asked to skip the file
// and get defaults. Any other path is read directly; a missing file at an
// explicit path is not an error and also yields Default().
func Load(path *string) (*Config, error) {
	var confPath string
	switch {
	case path != nil && *path == "":
		return Default(), nil
	case path != nil:
		confPath = *path
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		confPath = filepath.Join(home, ".config", "backpak.toml")
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
