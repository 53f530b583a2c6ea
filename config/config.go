// Package config layers yaml files, environment overrides and struct
// defaults into one typed configuration for the service. File layering
// follows the runtime mode: config.yaml, then config.local.yaml, then the
// mode-specific files, each overriding the last.
package config

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/leeforge/imageflow/cache"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/meta"
	"github.com/leeforge/imageflow/pipeline"
	"github.com/leeforge/imageflow/policy"
	"github.com/leeforge/imageflow/storage"
	valid "github.com/leeforge/imageflow/validate"
)

// StorageProvider selects the object store backend.
type StorageProvider string

const (
	ProviderOSS    StorageProvider = "oss"
	ProviderLocal  StorageProvider = "local"
	ProviderMemory StorageProvider = "memory"
)

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Provider StorageProvider   `mapstructure:"provider" json:"provider" default:"local" validate:"oneof=oss local memory"`
	OSS      storage.OSSConfig `mapstructure:"oss" json:"oss"`
	Local    LocalConfig       `mapstructure:"local" json:"local"`
}

// LocalConfig configures the filesystem-backed store.
type LocalConfig struct {
	BasePath string `mapstructure:"base-path" json:"basePath" default:"data/objects"`
	BaseURL  string `mapstructure:"base-url" json:"baseUrl"`
}

// CacheConfig configures metadata memoization.
type CacheConfig struct {
	// Enabled turns the digest-keyed metadata cache on.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Redis holds the connection settings. Leaving Addr empty selects the
	// in-process cache instead.
	Redis cache.RedisConfig `mapstructure:"redis" json:"redis"`
}

// HTTPConfig configures the upload endpoint.
type HTTPConfig struct {
	Addr           string `mapstructure:"addr" json:"addr" default:":8080"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes" json:"maxUploadBytes" default:"16777216"`
}

// Config is the full service configuration.
type Config struct {
	Logging    logging.Config  `mapstructure:"logging" json:"logging"`
	Validation valid.Config    `mapstructure:"validation" json:"validation"`
	Meta       meta.Config     `mapstructure:"meta" json:"meta"`
	Pipeline   pipeline.Config `mapstructure:"pipeline" json:"pipeline"`
	Storage    StorageConfig   `mapstructure:"storage" json:"storage"`
	Cache      CacheConfig     `mapstructure:"cache" json:"cache"`
	HTTP       HTTPConfig      `mapstructure:"http" json:"http"`

	// Policy maps extra group names to variant lists, merged over the
	// built-in groups.
	Policy map[string][]policy.Variant `mapstructure:"policy" json:"policy"`
}

// Load reads, binds and validates the full configuration.
func Load(optsArr ...Options) (*Config, error) {
	loader, err := NewLoader(optsArr...)
	if err != nil {
		return nil, err
	}
	loader.BindEnvKeys(structKeys(reflect.TypeOf(Config{}), ""))

	cfg := &Config{}
	if err := loader.BindWithDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// structKeys flattens mapstructure tags into dotted viper keys. Maps and
// slices are left out; only scalar leaves can come from the environment.
func structKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		switch ft := field.Type; ft.Kind() {
		case reflect.Struct:
			keys = append(keys, structKeys(ft, key)...)
		case reflect.Map, reflect.Slice:
		default:
			keys = append(keys, key)
		}
	}
	return keys
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.StructPartial(c, "Storage.Provider"); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Storage.Provider == ProviderOSS {
		if err := v.Struct(c.Storage.OSS); err != nil {
			return fmt.Errorf("config: storage.oss: %w", err)
		}
	}
	if c.Cache.Enabled && c.Cache.Redis.Addr != "" {
		if err := v.Struct(c.Cache.Redis); err != nil {
			return fmt.Errorf("config: cache.redis: %w", err)
		}
	}
	return nil
}

// Table builds the effective policy table: built-ins plus any configured
// overrides.
func (c *Config) Table() (*policy.Table, error) {
	table := policy.DefaultTable()
	if len(c.Policy) == 0 {
		return table, nil
	}
	return table.Merge(c.Policy)
}

// Store constructs the configured object store.
func (c *Config) Store() (storage.Store, error) {
	switch c.Storage.Provider {
	case ProviderOSS:
		return storage.NewOSS(c.Storage.OSS)
	case ProviderMemory:
		return storage.NewMemory(c.Storage.Local.BaseURL), nil
	default:
		return storage.NewLocal(c.Storage.Local.BasePath, c.Storage.Local.BaseURL)
	}
}

// MetadataCache constructs the configured cache, or nil when disabled.
func (c *Config) MetadataCache(logger logging.Logger) (cache.MetadataCache, error) {
	if !c.Cache.Enabled {
		return nil, nil
	}
	if c.Cache.Redis.Addr == "" {
		return cache.NewMemory(c.Cache.Redis.TTL), nil
	}
	return cache.NewRedis(c.Cache.Redis, logger)
}
