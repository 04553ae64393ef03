package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL points at a locally running analytics backend.
	DefaultBaseURL = "http://127.0.0.1:8000/api/"
	envPrefix      = "CEPV"
	dirName        = ".cepv"
)

// Global configuration structure.
type Global struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// HTTPTimeoutSec of 0 leaves the transport default in place.
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	SessionFile    string `mapstructure:"session_file" yaml:"session_file"`
	ChartsDir      string `mapstructure:"charts_dir" yaml:"charts_dir"`
	Theme          string `mapstructure:"theme" yaml:"theme"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.cepv.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.cepv/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a .env file in the working directory) > config file > defaults.
// Flag overrides are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("http_timeout_sec", 0)
	v.SetDefault("session_file", "")
	v.SetDefault("charts_dir", "charts")
	v.SetDefault("theme", "light")
	v.SetDefault("log_level", "info")

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.BaseURL = NormalizeBaseURL(c.BaseURL)
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(dir, "session.yaml")
	}
	// A saved file may carry explicit empty values.
	if c.ChartsDir == "" {
		c.ChartsDir = "charts"
	}
	if c.Theme == "" {
		c.Theme = "light"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return &c, nil
}

// NormalizeBaseURL trims whitespace and guarantees a trailing slash so that
// endpoint paths can be appended directly.
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		u = DefaultBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
