// Package repoconfig loads and validates the per-repository configuration
// file (config.toml): pack size, backend selection, and the optional
// filter/unfilter command pair.
package repoconfig

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/backpak/internal/bytesize"
	"github.com/marmos91/backpak/internal/repoerr"
)

// BackendKind selects the concrete storage backend a repository uses.
type BackendKind string

const (
	BackendFilesystem BackendKind = "Filesystem"
	BackendBackblaze  BackendKind = "Backblaze"
)

// DefaultPackSize is used when pack_size is omitted from config.toml.
const DefaultPackSize bytesize.ByteSize = 16 * 1024 * 1024

// BackendConfig holds the parameters for whichever backend Type selects.
// Only the fields relevant to Type are meaningful; the rest are zero.
type BackendConfig struct {
	Type BackendKind `mapstructure:"type" validate:"required,oneof=Filesystem Backblaze"`

	// Filesystem
	ForceCache bool `mapstructure:"force_cache"`

	// Backblaze (S3-compatible)
	KeyID                 string `mapstructure:"key_id"`
	ApplicationKey        string `mapstructure:"application_key"`
	Bucket                string `mapstructure:"bucket"`
	ConcurrentConnections uint   `mapstructure:"concurrent_connections"`
}

// Config is the parsed, validated contents of a repository's config.toml.
type Config struct {
	PackSize bytesize.ByteSize `mapstructure:"pack_size"`
	Filter   string            `mapstructure:"filter"`
	Unfilter string            `mapstructure:"unfilter"`
	Backend  BackendConfig     `mapstructure:"backend"`
}

// HasFilter reports whether this repository pipes objects through an
// external filter/unfilter pair.
func (c *Config) HasFilter() bool {
	return c.Filter != ""
}

// DirectFS reports whether the repository qualifies for the uncached
// direct-filesystem routing mode (§4.4): Filesystem backend, no filter,
// and force_cache disabled.
func (c *Config) DirectFS() bool {
	return c.Backend.Type == BackendFilesystem && !c.HasFilter() && !c.Backend.ForceCache
}

// Load reads and validates the repository configuration at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repoerr.New(repoerr.KindConfigInvalid, "load_config", path, err)
		}
		return nil, repoerr.New(repoerr.KindTransport, "load_config", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, repoerr.New(repoerr.KindConfigInvalid, "load_config", path, err)
	}

	cfg := &Config{PackSize: DefaultPackSize}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, repoerr.New(repoerr.KindConfigInvalid, "load_config", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the structural rules config.toml must satisfy: field
// presence/ranges via struct tags, plus the filter/unfilter pairing
// invariant that no tag can express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return repoerr.New(repoerr.KindConfigInvalid, "validate_config", "", err)
	}

	if (cfg.Filter == "") != (cfg.Unfilter == "") {
		return repoerr.New(repoerr.KindConfigInvalid, "validate_config", "",
			fmt.Errorf("filter and unfilter must both be set or both be absent"))
	}

	if cfg.Backend.Type == BackendBackblaze && cfg.Backend.ConcurrentConnections == 0 {
		return repoerr.New(repoerr.KindConfigInvalid, "validate_config", "",
			fmt.Errorf("backend.concurrent_connections must be greater than zero for Backblaze"))
	}

	return nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(byteSizeDecodeHook())
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
