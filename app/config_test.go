package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var conf Config
	conf.def()
	assert.Equal(t, "orderflow", conf.Name)
	assert.Equal(t, "127.0.0.1:11001", conf.Addr)
	assert.Equal(t, "127.0.0.1:9090", conf.MetricsAddr)
	assert.Equal(t, 1000, conf.BlockSize)
	assert.Equal(t, 128, conf.FilterCacheSize)
	assert.Equal(t, "redis", conf.Transport.Kind)
	assert.Equal(t, "order_event", conf.Transport.EventChannel)
	assert.Equal(t, "connect_order_flow", conf.Transport.ConnectChannel)
	assert.Equal(t, 5*time.Second, conf.Transport.DialTimeout)
	require.NotNil(t, conf.Transport.AutoConnect)
	assert.True(t, *conf.Transport.AutoConnect)
	assert.Equal(t, 50*time.Millisecond, conf.Viewport.Interval)
	assert.Equal(t, 50, conf.Viewport.Step)
	assert.NoError(t, conf.Validate())

	assert.Equal(t, "orderflow version 0.0.0", Versline(conf))
	conf.GitSHA = "abc123"
	assert.Equal(t, "orderflow version 0.0.0 (abc123)", Versline(conf))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative block size", func(c *Config) { c.BlockSize = -1 }},
		{"negative cache", func(c *Config) { c.FilterCacheSize = -1 }},
		{"cert without key", func(c *Config) { c.TLSCertPath = "cert.pem" }},
		{"unknown transport", func(c *Config) { c.Transport.Kind = "kafka" }},
		{"negative interval", func(c *Config) { c.Viewport.Interval = -time.Second }},
		{"negative step", func(c *Config) { c.Viewport.Step = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var conf Config
			conf.def()
			tt.mutate(&conf)
			assert.ErrorIs(t, conf.Validate(), ErrInvalidConfig)
		})
	}

	var conf Config
	conf.def()
	conf.Transport.Kind = "none"
	conf.Transport.Addr = ""
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orderflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 0.0.0.0:7000
log_level: debug
block_size: 250
transport:
  kind: none
  auto_connect: false
viewport:
  interval: 20ms
`), 0o600))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", conf.Addr)
	assert.Equal(t, "debug", conf.LogLevel)
	assert.Equal(t, 250, conf.BlockSize)
	assert.Equal(t, "none", conf.Transport.Kind)
	assert.False(t, *conf.Transport.AutoConnect)
	assert.Equal(t, 20*time.Millisecond, conf.Viewport.Interval)
	// untouched fields keep their defaults
	assert.Equal(t, 128, conf.FilterCacheSize)
	assert.Equal(t, 50, conf.Viewport.Step)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("block_size: [1"), 0o600))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogInit(t *testing.T) {
	conf := Config{LogLevel: "loud"}
	conf.def()
	conf.LogLevel = "loud"
	assert.Error(t, logInit(conf))

	conf.LogLevel = "info"
	conf.LogFormat = "xml"
	assert.ErrorIs(t, logInit(conf), ErrInvalidConfig)
}

func TestRespError(t *testing.T) {
	assert.Equal(t, "ERR unauthorized", respError(ErrUnauthorized))
	assert.Equal(t, "ERR unknown command 'nope'", respError(errUnknownCommand([]string{"nope", "x"})))
	assert.Equal(t, "WRONGTYPE bad value", respError(errString("WRONGTYPE bad value")))
}

type errString string

func (e errString) Error() string { return string(e) }
