package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	wl "deedles.dev/wlframe/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	want := Config{
		Title:   "frame",
		Width:   640,
		Format:  "argb8888",
		Buffers: 3,
	}

	tests := []struct {
		name string
		file string
		data string
	}{
		{
			name: "toml",
			file: "config.toml",
			data: "title = \"frame\"\nwidth = 640\nformat = \"argb8888\"\nbuffers = 3\n",
		},
		{
			name: "yaml",
			file: "config.yaml",
			data: "title: frame\nwidth: 640\nformat: argb8888\nbuffers: 3\n",
		},
		{
			name: "yml",
			file: "config.yml",
			data: "title: frame\nwidth: 640\nformat: argb8888\nbuffers: 3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadFile(writeFile(t, tt.file, tt.data))
			require.NoError(t, err)
			assert.Equal(t, want, c)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.json", "{}"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "config.toml", "title = "))
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "wlframe.yaml", "app_id: test.app\nheight: 300\ntimeout: 250ms\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvTitle, "from env")

	c, err := Load()
	require.NoError(t, err)

	want := Default()
	want.Title = "from env"
	want.AppID = "test.app"
	want.Height = 300
	want.Timeout = "250ms"
	assert.Equal(t, want, c)

	timeout, err := c.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, timeout)

	format, err := c.ShmFormat()
	require.NoError(t, err)
	assert.Equal(t, wl.ShmFormatXrgb8888, format)
}

func TestLoadTimeoutOverride(t *testing.T) {
	t.Setenv(EnvConfig, writeFile(t, "wlframe.toml", ""))
	t.Setenv(EnvTimeout, "0")

	c, err := Load()
	require.NoError(t, err)
	timeout, err := c.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"width", func(c *Config) { c.Width = -1 }},
		{"buffers", func(c *Config) { c.Buffers = 0 }},
		{"format", func(c *Config) { c.Format = "rgb9" }},
		{"timeout", func(c *Config) { c.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Timeout = "-1s" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}
