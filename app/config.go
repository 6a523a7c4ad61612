package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moontrade/orderflow/engine"
	"github.com/moontrade/orderflow/storage/paged"
	"github.com/moontrade/orderflow/transport"
	"github.com/moontrade/orderflow/viewport"
)

var ErrInvalidConfig = errors.New("invalid config")

// Versline renders the name, version and git sha of conf.
func Versline(conf Config) string {
	sha := ""
	if conf.GitSHA != "" {
		sha = " (" + conf.GitSHA + ")"
	}
	return fmt.Sprintf("%s version %s%s", conf.Name, conf.Version, sha)
}

// Config is the configuration for the orderflow server. Zero fields take
// their defaults in def.
type Config struct {
	// Name gives the server application a name. Default "orderflow"
	Name string `yaml:"-"`

	// Version of the application. Default "0.0.0"
	Version string `yaml:"-"`

	// GitSHA of the application.
	GitSHA string `yaml:"-"`

	// ServerReady is an optional callback function that fires when the server
	// socket is listening and is ready to accept incoming connections.
	ServerReady func(addr string) `yaml:"-"`

	Addr        string `yaml:"addr"`         // default "127.0.0.1:11001"
	MetricsAddr string `yaml:"metrics_addr"` // default "127.0.0.1:9090"
	Auth        string `yaml:"auth"`         // default ""
	TLSCertPath string `yaml:"tls_cert"`     // default ""
	TLSKeyPath  string `yaml:"tls_key"`      // default ""
	LogLevel    string `yaml:"log_level"`    // default "info"
	LogFormat   string `yaml:"log_format"`   // default "console"

	BlockSize       int `yaml:"block_size"`        // default 1000
	FilterCacheSize int `yaml:"filter_cache_size"` // default 128

	Transport TransportConfig `yaml:"transport"`
	Viewport  ViewportConfig  `yaml:"viewport"`
}

type TransportConfig struct {
	// Kind is "redis" or "none". Default "redis"
	Kind           string        `yaml:"kind"`
	Addr           string        `yaml:"addr"`            // default "127.0.0.1:6379"
	Auth           string        `yaml:"auth"`            // default ""
	EventChannel   string        `yaml:"event_channel"`   // default "order_event"
	ConnectChannel string        `yaml:"connect_channel"` // default "connect_order_flow"
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // default 5s
	// AutoConnect performs the handshake at startup instead of waiting for a
	// CONNECT command. Default true
	AutoConnect *bool `yaml:"auto_connect"`
}

type ViewportConfig struct {
	Interval time.Duration `yaml:"interval"` // default 50ms
	Step     int           `yaml:"step"`     // default 50
}

func (conf *Config) def() {
	if conf.Name == "" {
		conf.Name = "orderflow"
	}
	if conf.Version == "" {
		conf.Version = "0.0.0"
	}
	if conf.Addr == "" {
		conf.Addr = "127.0.0.1:11001"
	}
	if conf.MetricsAddr == "" {
		conf.MetricsAddr = "127.0.0.1:9090"
	}
	if conf.LogLevel == "" {
		conf.LogLevel = "info"
	}
	if conf.LogFormat == "" {
		conf.LogFormat = "console"
	}
	if conf.BlockSize == 0 {
		conf.BlockSize = paged.DefaultBlockSize
	}
	if conf.FilterCacheSize == 0 {
		conf.FilterCacheSize = engine.DefaultFilterCacheSize
	}
	t := &conf.Transport
	if t.Kind == "" {
		t.Kind = "redis"
	}
	if t.Addr == "" {
		t.Addr = "127.0.0.1:6379"
	}
	if t.EventChannel == "" {
		t.EventChannel = transport.EventChannel
	}
	if t.ConnectChannel == "" {
		t.ConnectChannel = transport.ConnectChannel
	}
	if t.DialTimeout == 0 {
		t.DialTimeout = 5 * time.Second
	}
	if t.AutoConnect == nil {
		auto := true
		t.AutoConnect = &auto
	}
	if conf.Viewport.Interval == 0 {
		conf.Viewport.Interval = viewport.DefaultInterval
	}
	if conf.Viewport.Step == 0 {
		conf.Viewport.Step = viewport.DefaultStep
	}
}

// Validate reports the first invalid setting.
func (conf Config) Validate() error {
	switch {
	case conf.BlockSize <= 0:
		return fmt.Errorf("%w: block_size must be positive", ErrInvalidConfig)
	case conf.FilterCacheSize < 0:
		return fmt.Errorf("%w: filter_cache_size must not be negative", ErrInvalidConfig)
	case conf.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalidConfig)
	case conf.MetricsAddr == "":
		return fmt.Errorf("%w: metrics_addr is empty", ErrInvalidConfig)
	case (conf.TLSCertPath == "") != (conf.TLSKeyPath == ""):
		return fmt.Errorf("%w: tls_cert and tls_key must be set together", ErrInvalidConfig)
	case conf.Viewport.Interval < 0:
		return fmt.Errorf("%w: viewport interval must not be negative", ErrInvalidConfig)
	case conf.Viewport.Step < 0:
		return fmt.Errorf("%w: viewport step must not be negative", ErrInvalidConfig)
	}
	switch conf.Transport.Kind {
	case "redis":
		if conf.Transport.Addr == "" {
			return fmt.Errorf("%w: transport addr is empty", ErrInvalidConfig)
		}
	case "none":
	default:
		return fmt.Errorf("%w: unknown transport kind %q", ErrInvalidConfig, conf.Transport.Kind)
	}
	return nil
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	var conf Config
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	conf.def()
	return conf, nil
}
