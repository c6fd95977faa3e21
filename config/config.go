// Package config loads operator-facing defaults: how deep the log
// ring buffer is, where log files and recently-used scenarios live,
// and the fallback replay settings (interfaces, MTU, timing strategy,
// loop count) applied to any scenario that leaves them unset. Values
// are layered: built-in defaults, then an optional JSON file, then
// per-field fallback for anything the file left at its zero value.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/kestrel-net/packetloom/engine"
)

type Config struct {
	LogLines  int    `json:"log_lines"`
	LogsDir   string `json:"logs_dir"`
	RecentDir string `json:"recent_dir"`

	// DefaultInterfaceA/B, DefaultMTU, DefaultAccuracy, and DefaultLoop
	// seed a scenario.Config before its Lua file is mapped onto it, so
	// a scenario that doesn't set one of these fields picks up the
	// operator's site-wide default instead of the scenario package's
	// own hardcoded fallback.
	DefaultInterfaceA string `json:"default_interface_a"`
	DefaultInterfaceB string `json:"default_interface_b"`
	DefaultMTU        int    `json:"default_mtu"`
	DefaultAccuracy   string `json:"default_accuracy"`
	DefaultLoop       int    `json:"default_loop"`
}

var (
	defaultConfig *Config
	once          sync.Once
)

func Default() *Config {
	return &Config{
		LogLines:        1000,
		LogsDir:         "logs",
		RecentDir:       "recent",
		DefaultMTU:      engine.DefaultMTU,
		DefaultAccuracy: "abstime",
		DefaultLoop:     1,
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"packetloom.json",
			".packetloom.json",
			filepath.Join(os.Getenv("HOME"), ".config", "packetloom", "config.json"),
		}

		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply defaults for any zero values
	if cfg.LogLines <= 0 {
		cfg.LogLines = 1000
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = "logs"
	}
	if cfg.RecentDir == "" {
		cfg.RecentDir = "recent"
	}
	if cfg.DefaultMTU <= 0 {
		cfg.DefaultMTU = engine.DefaultMTU
	}
	if cfg.DefaultAccuracy == "" {
		cfg.DefaultAccuracy = "abstime"
	}
	if cfg.DefaultLoop <= 0 {
		cfg.DefaultLoop = 1
	}

	return cfg, nil
}

// LoadDefault loads the config once and caches it
func LoadDefault() (*Config, error) {
	var err error
	once.Do(func() {
		defaultConfig, err = Load("")
	})
	if err != nil {
		return Default(), err
	}
	return defaultConfig, nil
}
