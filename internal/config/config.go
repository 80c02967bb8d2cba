package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects every setting of the dashboard binaries.
type Config struct {
	Port             string        `yaml:"port"`
	PredictorBaseURL string        `yaml:"predictor_base_url"`
	PredictorTimeout time.Duration `yaml:"predictor_timeout"`
	DefaultCountry   string        `yaml:"default_country"`
	DBPath           string        `yaml:"db_path"`
	DisableHistory   bool          `yaml:"disable_history"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:             "8080",
		PredictorBaseURL: "http://127.0.0.1:5000",
		DefaultCountry:   "in",
		DBPath:           "data/stability.db",
		LogLevel:         "info",
	}
}

// Load reads the optional YAML file at path over the defaults and then
// applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	// yaml.v3 decodes duration strings such as "30s" into time.Duration.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(getenv("PREDICTOR_BASE_URL")); v != "" {
		c.PredictorBaseURL = v
	}
	if v := strings.TrimSpace(getenv("PREDICTOR_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse PREDICTOR_TIMEOUT: %w", err)
		}
		c.PredictorTimeout = d
	}
	if v := strings.TrimSpace(getenv("DEFAULT_COUNTRY")); v != "" {
		c.DefaultCountry = v
	}
	if v := strings.TrimSpace(getenv("STABILITY_DB_PATH")); v != "" {
		c.DBPath = v
	}
	if v := strings.TrimSpace(getenv("DISABLE_HISTORY")); v != "" {
		c.DisableHistory = strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	return c.validate()
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	if c.PredictorTimeout < 0 {
		return errors.New("predictor timeout must not be negative")
	}
	if !c.DisableHistory && strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db path required when history is enabled")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
