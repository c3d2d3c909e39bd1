package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds environment-driven configuration. When TIMETRACK_CONFIG names
// a YAML file it supplies base values and environment variables override them.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"` // default: :8080
	} `yaml:"http"`
	Store struct {
		Driver string `yaml:"driver"` // mysql (default) or memory
	} `yaml:"store"`
	MySQL struct {
		DSN string `yaml:"dsn"` // e.g., user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	} `yaml:"mysql"`
	Tasks struct {
		BaseURL  string `yaml:"base_url"` // task directory API; empty reads the tasks table
		APIToken string `yaml:"api_token"`
	} `yaml:"tasks"`
	Billing struct {
		Currency string `yaml:"currency"` // default currency for new rates, default USD
	} `yaml:"billing"`
}

// Load reads the optional YAML file and then environment variables.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("TIMETRACK_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	setFromEnv(&cfg.HTTP.Addr, "HTTP_ADDR")
	setFromEnv(&cfg.Store.Driver, "STORE_DRIVER")
	setFromEnv(&cfg.MySQL.DSN, "MYSQL_DSN")
	setFromEnv(&cfg.Tasks.BaseURL, "TASKS_BASE_URL")
	setFromEnv(&cfg.Tasks.APIToken, "TASKS_API_TOKEN")
	setFromEnv(&cfg.Billing.Currency, "RATE_CURRENCY")
	cfg.Tasks.BaseURL = strings.TrimRight(cfg.Tasks.BaseURL, "/")

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMySQL
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "USD"
	}

	switch cfg.Store.Driver {
	case DriverMySQL:
		if cfg.MySQL.DSN == "" {
			return cfg, errors.New("MYSQL_DSN is required when STORE_DRIVER=mysql")
		}
	case DriverMemory:
		if cfg.Tasks.BaseURL == "" {
			return cfg, errors.New("TASKS_BASE_URL is required when STORE_DRIVER=memory")
		}
	default:
		return cfg, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, cfg.Store.Driver)
	}
	return cfg, nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// loadFile parses a YAML config, replacing ${VAR} placeholders with the
// environment first.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	content := os.Expand(string(data), func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return "${" + key + "}"
	})
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	return nil
}
