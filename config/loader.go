package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Options control where configuration is read from and how it behaves at
// runtime.
type Options struct {
	// BasePath is the directory searched for config files. Defaults to the
	// CONFIG_PATH environment variable, then "config".
	BasePath string

	// FileName is the base file name without extension.
	FileName string

	// FileType is the config file format understood by viper.
	FileType string

	// EnvPrefix namespaces environment variable overrides
	// (IMAGEFLOW_STORAGE_OSS_BUCKET and so on).
	EnvPrefix string

	// Watch re-binds the target struct when a config file changes on disk.
	Watch bool

	// OnChange is called after a successful re-bind.
	OnChange func(e fsnotify.Event)
}

// DefaultOptions returns the conventional file layout.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}
	return Options{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "IMAGEFLOW",
	}
}

// Loader layers config files for the current mode and binds them onto
// structs. Later layers (config.production.yaml, *.local) override earlier
// ones; environment variables override everything.
type Loader struct {
	instance  *viper.Viper
	opts      Options
	watchOnce sync.Once
	mu        sync.RWMutex
}

// NewLoader reads the layered config files under opts.BasePath. Missing
// files are fine; an empty directory yields a Loader that binds pure
// defaults.
func NewLoader(optsArr ...Options) (*Loader, error) {
	opts := DefaultOptions()
	if len(optsArr) > 0 {
		opts = optsArr[0]
	}
	if opts.FileName == "" {
		opts.FileName = "config"
	}
	if opts.FileType == "" {
		opts.FileType = "yaml"
	}

	instance, err := createViper(opts)
	if err != nil {
		return nil, err
	}
	return &Loader{instance: instance, opts: opts}, nil
}

// Bind unmarshals the merged configuration into instance. When watching is
// enabled the same instance is re-bound on every file change.
func (l *Loader) Bind(instance any) error {
	if instance == nil {
		return fmt.Errorf("config: bind target is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("config: unmarshal %s/%s.%s: %w",
			l.opts.BasePath, l.opts.FileName, l.opts.FileType, err)
	}

	if l.opts.Watch {
		l.watchOnce.Do(func() {
			l.instance.WatchConfig()
			l.instance.OnConfigChange(func(e fsnotify.Event) {
				l.mu.Lock()
				defer l.mu.Unlock()

				if err := l.instance.Unmarshal(instance); err != nil {
					fmt.Fprintf(os.Stderr, "config: watch re-bind failed: %v\n", err)
					return
				}
				if l.opts.OnChange != nil {
					l.opts.OnChange(e)
				}
			})
		})
	}

	return nil
}

// BindWithDefaults fills `default` struct tags, binds the file contents
// over them, then fills defaults again for sections the files never
// mention.
func (l *Loader) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("config: set defaults: %w", err)
	}
	if err := l.Bind(instance); err != nil {
		return err
	}
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("config: set defaults after bind: %w", err)
	}
	return nil
}

// BindEnvKeys registers keys for environment lookup. Viper only consults
// the environment for keys it already knows about, so without this an
// IMAGEFLOW_* variable is invisible unless a config file mentions the same
// key.
func (l *Loader) BindEnvKeys(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		_ = l.instance.BindEnv(key)
	}
}

// Get reads one merged key. Intended for diagnostics, not hot paths.
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.instance.Get(key)
}

// Set overrides one key in memory.
func (l *Loader) Set(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instance.Set(key, value)
}

func createViper(opts Options) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, path := range layeredFilePaths(opts) {
		layer := viper.New()
		layer.SetConfigFile(path)
		if err := layer.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for _, key := range layer.AllKeys() {
			v.Set(key, layer.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	applyEnvOverrides(v, opts.EnvPrefix)

	return v, nil
}

// applyEnvOverrides force-sets any key that has a matching environment
// variable, so the env wins over file values even for keys viper already
// merged.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

// layeredFilePaths lists the config files that exist for the current mode,
// in override order.
func layeredFilePaths(opts Options) []string {
	var paths []string
	for _, suffix := range CurrentMode().suffixes() {
		name := fmt.Sprintf("%s%s.%s", opts.FileName, suffix, opts.FileType)
		path := filepath.Join(opts.BasePath, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			paths = append(paths, path)
		}
	}
	return paths
}
