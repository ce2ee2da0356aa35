// Package config loads capgen's optional TOML configuration file.
//
// The file supplies defaults for flags the user does not pass on the command
// line: caption colors, the font, the output format, a standing byte budget,
// and cache/serve settings. Flags always win over file values; the merge
// happens in the CLI layer, not here.
//
// Default location: ~/.config/capgen/config.toml (XDG_CONFIG_HOME honored).
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/capgen/capgen/pkg/caption"
	"github.com/capgen/capgen/pkg/errors"
)

// appName names the per-user config and cache directories.
const appName = "capgen"

// Config mirrors the TOML file layout.
type Config struct {
	// Caption defaults
	FontPath         string `toml:"font_path"`
	Bold             bool   `toml:"bold"`
	Italic           bool   `toml:"italic"`
	TopFontColor     string `toml:"top_font_color"`
	BottomFontColor  string `toml:"bottom_font_color"`
	TopBackground    string `toml:"top_background"`
	BottomBackground string `toml:"bottom_background"`
	Separator        bool   `toml:"separator"`
	SeparatorColor   string `toml:"separator_color"`

	// Output defaults
	Format string `toml:"format"`
	Budget int    `toml:"budget"`

	// Cache settings
	CacheDir string `toml:"cache_dir"`
	NoCache  bool   `toml:"no_cache"`

	Redis RedisConfig `toml:"redis"`
	Serve ServeConfig `toml:"serve"`
}

// RedisConfig selects the shared cache backend for serve mode. An empty
// Addr means the file cache is used instead.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the config directory using the XDG standard
// (~/.config/capgen/).
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Load reads the config file at path. An empty path means the default
// location. A missing file at the default location is not an error; a
// missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects values that would fail later with a confusing error.
func (c *Config) validate() error {
	for _, s := range []string{c.TopFontColor, c.BottomFontColor, c.TopBackground, c.BottomBackground, c.SeparatorColor} {
		if _, err := caption.ParseColor(s); err != nil {
			return err
		}
	}
	if c.Budget < 0 {
		return errors.New(errors.ErrCodeInvalidBudget, "config budget must not be negative")
	}
	if c.Format != "" && c.Format != "jpg" && c.Format != "jpeg" && c.Format != "png" {
		return errors.New(errors.ErrCodeInvalidFormat, "config format %q must be jpg, jpeg, or png", c.Format)
	}
	return nil
}
