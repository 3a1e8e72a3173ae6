package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second
)

type Config struct {
	APIURL   string        `yaml:"api_url"`
	DataDir  string        `yaml:"data_dir"`
	LogDir   string        `yaml:"log_dir"`
	LogLevel string        `yaml:"log_level"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoadConfig resolves configuration from defaults, an optional YAML file and
// the environment, in that order. An empty path means <data dir>/config.yaml,
// which may be absent.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		APIURL:   DefaultAPIURL,
		DataDir:  getEnv("HEALTHBOT_DATA_DIR", defaultDataDir()),
		LogLevel: "info",
		Timeout:  DefaultTimeout,
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.APIURL = getEnv("HEALTHBOT_API_URL", cfg.APIURL)
	cfg.LogDir = getEnv("HEALTHBOT_LOG_DIR", cfg.LogDir)
	cfg.LogLevel = getEnv("HEALTHBOT_LOG_LEVEL", cfg.LogLevel)
	if raw := getEnv("HEALTHBOT_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("HEALTHBOT_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url %q must start with http:// or https://", c.APIURL)
	}
	if c.DataDir == "" {
		return errors.New("data dir is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// StatePath is where the identity store keeps its files.
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if file.APIURL != "" {
		c.APIURL = file.APIURL
	}
	if file.DataDir != "" {
		c.DataDir = file.DataDir
	}
	if file.LogDir != "" {
		c.LogDir = file.LogDir
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.Timeout > 0 {
		c.Timeout = file.Timeout
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".healthbot"
	}
	return filepath.Join(home, ".healthbot")
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}
