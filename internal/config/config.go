// Package config loads and validates Lernhilfe configuration.
// Settings come from an optional YAML file plus the environment; the
// session secret is environment-only and is validated fail-fast so the
// process never starts with a weak or missing secret.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lernhilfe/internal/session"
)

// SecretEnv is the environment variable holding the session signing secret.
const SecretEnv = "LERNHILFE_SESSION_SECRET"

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// SessionConfig holds session lifetime settings. The secret itself never
// lives in the config file.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// LoginConfig holds login throttle settings.
type LoginConfig struct {
	AttemptLimit  int `yaml:"attempt_limit"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Config mirrors the lernhilfe.yaml schema.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DataDir string        `yaml:"data_dir"`
	HTTP    HTTPConfig    `yaml:"http"`
	Session SessionConfig `yaml:"session"`
	Login   LoginConfig   `yaml:"login"`
}

// Default returns a fully populated default configuration.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

// Load reads a YAML config file, applies defaults, and validates it.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	return c, nil
}

// applyDefaults populates zero-values with sane defaults.
func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 12 * 60
	}
	if c.Login.AttemptLimit == 0 {
		c.Login.AttemptLimit = 5
	}
	if c.Login.WindowSeconds == 0 {
		c.Login.WindowSeconds = 60
	}
}

// validate performs basic sanity checks for required fields and ranges.
func validate(c *Config) error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	if c.Session.TTLMinutes < 1 {
		return errors.New("session.ttl_minutes is invalid")
	}
	if c.Login.AttemptLimit < 1 {
		return errors.New("login.attempt_limit is invalid")
	}
	if c.Login.WindowSeconds < 1 {
		return errors.New("login.window_seconds is invalid")
	}
	return nil
}

// LoadSecret resolves the session secret from a .env file (when present)
// and the process environment. It is a startup error for the secret to be
// absent or shorter than session.MinSecretLength.
func LoadSecret(envFile string) (string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return "", err
		}
	} else {
		// Default .env is optional.
		_ = godotenv.Load()
	}
	secret := strings.TrimSpace(os.Getenv(SecretEnv))
	if len(secret) < session.MinSecretLength {
		return "", errors.New(SecretEnv + " missing or shorter than 32 characters; refusing to start")
	}
	return secret, nil
}
