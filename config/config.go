// Package config loads wlframe's settings from a TOML or YAML file in
// the user's configuration directory, with a few environment
// overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	wl "deedles.dev/wlframe/client"
	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override configuration.
const (
	EnvConfig  = "WLFRAME_CONFIG"
	EnvTitle   = "WLFRAME_TITLE"
	EnvTimeout = "WLFRAME_TIMEOUT"
)

var searchPaths = []string{
	"wlframe/config.toml",
	"wlframe/config.yaml",
	"wlframe/config.yml",
}

type Config struct {
	Title string `toml:"title,omitempty" yaml:"title,omitempty"`
	AppID string `toml:"app_id,omitempty" yaml:"app_id,omitempty"`

	// Width and Height are the size of the window when the compositor
	// leaves it up to the client.
	Width  int `toml:"width,omitempty" yaml:"width,omitempty"`
	Height int `toml:"height,omitempty" yaml:"height,omitempty"`

	// Format is the name of the pixel format to draw in, such as
	// "xrgb8888".
	Format string `toml:"format,omitempty" yaml:"format,omitempty"`

	// Buffers is the number of buffers to cycle through.
	Buffers int `toml:"buffers,omitempty" yaml:"buffers,omitempty"`

	// Timeout is how long to wait for the compositor to answer before
	// giving up on it, as a Go duration. "0" disables the limit.
	Timeout string `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Title:   "wlframe",
		AppID:   "dev.deedles.wlframe",
		Width:   512,
		Height:  512,
		Format:  "xrgb8888",
		Buffers: 2,
		Timeout: "5s",
	}
}

// Load reads the configuration file named by $WLFRAME_CONFIG or, if
// that is unset, the first wlframe config file found in the XDG
// configuration directories. A missing file is not an error.
// Environment overrides are applied last.
func Load() (Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = find()
	}

	c := Default()
	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return c, err
		}
		c.merge(file)
	}

	c.applyEnv()
	return c, c.Validate()
}

func find() string {
	for _, rel := range searchPaths {
		path, err := xdg.SearchConfigFile(rel)
		if err == nil {
			return path
		}
	}
	return ""
}

// LoadFile decodes a single configuration file. The format is chosen
// by extension. Unset fields are left zero.
func LoadFile(path string) (Config, error) {
	var c Config

	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return c, errors.Errorf("unknown config format %q", ext)
	}
	return c, errors.Wrapf(err, "decode %v", path)
}

func (c *Config) merge(o Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	set(&c.Title, o.Title)
	set(&c.AppID, o.AppID)
	setInt(&c.Width, o.Width)
	setInt(&c.Height, o.Height)
	set(&c.Format, o.Format)
	setInt(&c.Buffers, o.Buffers)
	set(&c.Timeout, o.Timeout)
}

func (c *Config) applyEnv() {
	if title, ok := os.LookupEnv(EnvTitle); ok {
		c.Title = title
	}
	if timeout, ok := os.LookupEnv(EnvTimeout); ok {
		c.Timeout = timeout
	}
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid window size %vx%v", c.Width, c.Height)
	}
	if c.Buffers <= 0 {
		return errors.Errorf("invalid buffer count %v", c.Buffers)
	}
	if _, err := c.ShmFormat(); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// ShmFormat returns the configured pixel format.
func (c Config) ShmFormat() (wl.ShmFormat, error) {
	return wl.ParseShmFormat(c.Format)
}

// TimeoutDuration returns the configured timeout.
func (c Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.Wrap(err, "timeout")
	}
	if d < 0 {
		return 0, errors.Errorf("negative timeout %v", d)
	}
	return d, nil
}
