package tessera

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultWorkers is the default size of the tile executor's worker pool.
	DefaultWorkers = 8

	// DefaultTilesPerLevel is the default capacity of each pyramid level's tile cache.
	DefaultTilesPerLevel = 256
)

// Config is the parsed TOML configuration for the engine.
type Config struct {
	Logging   LogConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig
}

// SchedulerConfig tunes the tile executor.
type SchedulerConfig struct {
	// Workers is the bound on concurrently executing tile work items.
	Workers int

	// Order is the tile iteration order: "row", "column", or "banded".
	Order string
}

// CacheConfig tunes tile caching.
type CacheConfig struct {
	// TilesPerLevel caps the number of decoded tiles cached per pyramid level.
	TilesPerLevel int `toml:"tiles_per_level"`

	// SharedMB is the size in megabytes of the optional shared encoded tile
	// cache.  Zero disables it.
	SharedMB int `toml:"shared_mb"`
}

// LoadConfig reads a TOML configuration file, converting relative log paths
// to absolute ones using the config file's own directory.
func LoadConfig(path string) (*Config, error) {
	c := &Config{
		Scheduler: SchedulerConfig{Workers: DefaultWorkers, Order: "row"},
		Cache:     CacheConfig{TilesPerLevel: DefaultTilesPerLevel},
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config at %s: %v", path, err)
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = DefaultWorkers
	}
	if c.Cache.TilesPerLevel <= 0 {
		c.Cache.TilesPerLevel = DefaultTilesPerLevel
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		c.Logging.Logfile = filepath.Join(filepath.Dir(path), c.Logging.Logfile)
	}
	return c, nil
}
