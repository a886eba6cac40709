/*
config.go - Server configuration

PURPOSE:
  Collects runtime settings for cmd/server. Sources are applied in order,
  each overriding the one before:
    1. built-in defaults
    2. YAML file named by BILLING_CONFIG
    3. environment (a .env file in the working directory is loaded first)
    4. command-line flags (applied by cmd/server)

ENVIRONMENT:
  BILLING_CONFIG          path to a YAML file
  BILLING_PORT            HTTP port
  BILLING_DB              SQLite path, ":memory:" for an in-memory database
  BILLING_HORIZON_MONTHS  advance forecast horizon on ledger statements
  BILLING_KAFKA_BROKERS   comma separated broker list; empty disables kafka
  BILLING_KAFKA_TOPIC     topic prefix for published events
  BILLING_LOG_LEVEL       debug | info | warn | error
  BILLING_CURRENCY        currency label printed on exported documents
  BILLING_AUDIT_INTERVAL  drift audit interval (e.g. 1h); 0 disables it
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/rent-billing/billing"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int    `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	HorizonMonths int    `yaml:"horizon_months"`
	LogLevel      string `yaml:"log_level"`
	Currency      string `yaml:"currency"`
	Kafka         Kafka  `yaml:"kafka"`

	AuditInterval time.Duration `yaml:"audit_interval"`
}

type Kafka struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
}

// Enabled reports whether events go to kafka rather than the log.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

func Default() Config {
	return Config{
		Port:          8080,
		DBPath:        "billing.db",
		HorizonMonths: 12,
		LogLevel:      "info",
		Currency:      "INR",
		AuditInterval: time.Hour,
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BILLING_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BILLING_PORT: %w", err)
		}
		cfg.Port = n
	}
	if v := os.Getenv("BILLING_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BILLING_HORIZON_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BILLING_HORIZON_MONTHS: %w", err)
		}
		cfg.HorizonMonths = n
	}
	if v := os.Getenv("BILLING_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BILLING_CURRENCY"); v != "" {
		cfg.Currency = v
	}
	if v := os.Getenv("BILLING_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = SplitCSV(v)
	}
	if v := os.Getenv("BILLING_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.TopicPrefix = v
	}
	if v := os.Getenv("BILLING_AUDIT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: BILLING_AUDIT_INTERVAL: %w", err)
		}
		cfg.AuditInterval = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db path required")
	}
	if c.HorizonMonths <= 0 || c.HorizonMonths > billing.MaxHorizonMonths {
		return fmt.Errorf("config: horizon_months must be between 1 and %d, got %d", billing.MaxHorizonMonths, c.HorizonMonths)
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("config: audit_interval must not be negative, got %s", c.AuditInterval)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
