package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverJSONFile = "jsonfile"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var drivers = []string{DriverMemory, DriverJSONFile, DriverSQLite, DriverPostgres}

// Config is the complete rxdata configuration.
type Config struct {
	Store StoreConfig  `toml:"store"`
	Log   LogConfig    `toml:"log"`
	Kinds []KindConfig `toml:"kinds"`

	// dir is the directory of the loaded file, used to resolve paths.
	dir string
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	Watch    bool   `toml:"watch"`
	Debounce string `toml:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Verbosity is the glog -v level.
	Verbosity int `toml:"verbosity"`
}

// KindConfig describes a record kind and the collection holding it.
type KindConfig struct {
	Name        string         `toml:"name"`
	URLRoot     string         `toml:"url_root"`
	IDAttribute string         `toml:"id_attribute"`
	SortBy      string         `toml:"sort_by"`
	Descending  bool           `toml:"descending"`
	Validator   string         `toml:"validator"`
	Defaults    map[string]any `toml:"defaults"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:   DriverMemory,
			Debounce: "100ms",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}
	if (c.Store.Driver == DriverJSONFile || c.Store.Driver == DriverSQLite) && c.Store.Path == "" {
		return fmt.Errorf("%w for driver %s", ErrMissingPath, c.Store.Driver)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}

	seen := map[string]bool{}
	for i, k := range c.Kinds {
		if k.Name == "" {
			return fmt.Errorf("%w: kinds[%d] has no name", ErrInvalidKind, i)
		}
		if seen[k.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidKind, k.Name)
		}
		seen[k.Name] = true
	}
	return nil
}

// DebounceDuration returns the parsed watch debounce. An empty value is zero.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Store.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.Debounce)
	if err != nil {
		return 0, fmt.Errorf("store.debounce: %w", err)
	}
	return d, nil
}

// Resolve returns path relative to the configuration file's directory.
// Absolute and empty paths are returned unchanged.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// StorePath returns the resolved store path.
func (c *Config) StorePath() string {
	return c.Resolve(c.Store.Path)
}

// Kind returns the configuration of the named kind.
func (c *Config) Kind(name string) (KindConfig, bool) {
	for _, k := range c.Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return KindConfig{}, false
}

// ResourceURL returns the collection URL of k, defaulting to "/<name>".
func (k KindConfig) ResourceURL() string {
	if k.URLRoot != "" {
		return k.URLRoot
	}
	return "/" + k.Name
}
