package clipmirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/trypsynth/clipmirror/clipboard"
)

const (
	DefaultAddress    = "127.0.0.1"
	DefaultPort       = 3660
	DefaultConfigName = ".clipmirror"

	EnvConfig   = "CLIPMIRROR_CONFIG"
	EnvLogLevel = "CLIPMIRROR_LOG_LEVEL"
)

type Config struct {
	Address         string `json:"address" toml:"address" yaml:"address"`
	Port            int    `json:"port" toml:"port" yaml:"port"`
	Backend         string `json:"backend,omitempty" toml:"backend" yaml:"backend,omitempty"`
	LogLevel        string `json:"logLevel,omitempty" toml:"log_level" yaml:"logLevel,omitempty"`
	MetricsAddress  string `json:"metricsAddress,omitempty" toml:"metrics_address" yaml:"metricsAddress,omitempty"`
	MaxRequestBytes int64  `json:"maxRequestBytes,omitempty" toml:"max_request_bytes" yaml:"maxRequestBytes,omitempty"`
	ReadTimeout     string `json:"readTimeout,omitempty" toml:"read_timeout" yaml:"readTimeout,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Address:  DefaultAddress,
		Port:     DefaultPort,
		Backend:  clipboard.BackendSystem,
		LogLevel: "info",
	}
}

// LoadConfig reads the config file at path, or ~/.clipmirror when path is
// empty. A missing default file is not an error. The file extension picks the
// format: .toml, .yaml/.yml, anything else is JSON.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, DefaultConfigName)
	}
	configFile, err := os.Open(path)
	switch {
	case err == nil:
		defer configFile.Close()
		if err := decodeConfig(configFile, filepath.Ext(path), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}
	config.Address = os.ExpandEnv(config.Address)
	config.MetricsAddress = os.ExpandEnv(config.MetricsAddress)
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.LogLevel = level
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeConfig(r io.Reader, ext string, config *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		_, err := toml.NewDecoder(r).Decode(config)
		return err
	case ".yaml", ".yml":
		err := yaml.NewDecoder(r).Decode(config)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	default:
		return json.NewDecoder(r).Decode(config)
	}
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required in config")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	switch strings.ToLower(c.Backend) {
	case "", clipboard.BackendSystem, clipboard.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", clipboard.ErrUnknownBackend, c.Backend)
	}
	if c.MaxRequestBytes < 0 {
		return fmt.Errorf("maxRequestBytes must not be negative")
	}
	if _, err := c.ReadTimeoutDuration(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ServerAddress is the host:port the server listens on and clients dial.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

func (c *Config) ReadTimeoutDuration() (time.Duration, error) {
	if c.ReadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.ReadTimeout))
	if err != nil {
		return 0, fmt.Errorf("parse readTimeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("readTimeout must not be negative")
	}
	return d, nil
}
