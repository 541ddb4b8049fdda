package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig is the project configuration.
type SimulatorConfig struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Geo        GeoConfig        `yaml:"geo"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SimulationConfig controls the incident run.
type SimulationConfig struct {
	Count        int    `yaml:"count" env:"INCIDENTSIM_COUNT"`
	Workers      int    `yaml:"workers" env:"INCIDENTSIM_WORKERS"`
	Seed         uint64 `yaml:"seed" env:"INCIDENTSIM_SEED"`
	ResponsePlan string `yaml:"response_plan" env:"INCIDENTSIM_RESPONSE_PLAN"`
}

// CatalogConfig points at an optional catalog file.
type CatalogConfig struct {
	Path string `yaml:"path" env:"INCIDENTSIM_CATALOG_PATH"`
}

// GeoConfig controls country geolocation.
type GeoConfig struct {
	Mode      string          `yaml:"mode" env:"INCIDENTSIM_GEO_MODE"` // static|nominatim|none
	Timeout   time.Duration   `yaml:"timeout" env:"INCIDENTSIM_GEO_TIMEOUT"`
	Nominatim NominatimConfig `yaml:"nominatim"`
}

// NominatimConfig configures the OpenStreetMap geocoder.
type NominatimConfig struct {
	URL           string  `yaml:"url" env:"INCIDENTSIM_NOMINATIM_URL"`
	UserAgent     string  `yaml:"user_agent" env:"INCIDENTSIM_NOMINATIM_USER_AGENT"`
	RatePerSecond float64 `yaml:"rate_per_second" env:"INCIDENTSIM_NOMINATIM_RATE"`
}

// AlertsConfig controls the notification channel.
type AlertsConfig struct {
	Mode       string                 `yaml:"mode" env:"INCIDENTSIM_ALERTS_MODE"` // file|http|smtp|redis|clickhouse|none
	Timeout    time.Duration          `yaml:"timeout" env:"INCIDENTSIM_ALERTS_TIMEOUT"`
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	SMTP       SMTPOutputConfig       `yaml:"smtp"`
	Redis      RedisOutputConfig      `yaml:"redis"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// FileOutputConfig config for the local alert journal.
type FileOutputConfig struct {
	Path string `yaml:"path" env:"INCIDENTSIM_ALERTS_FILE"`
}

// HTTPOutputConfig config for webhook alerts.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url" env:"INCIDENTSIM_ALERTS_HTTP_URL"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
	Secret  string            `yaml:"secret" env:"INCIDENTSIM_ALERTS_HTTP_SECRET"`
	Retries int               `yaml:"retries"`
}

// SMTPOutputConfig config for e-mail alerts.
type SMTPOutputConfig struct {
	Host       string   `yaml:"host" env:"INCIDENTSIM_SMTP_HOST"`
	Port       int      `yaml:"port" env:"INCIDENTSIM_SMTP_PORT"`
	Security   string   `yaml:"security" env:"INCIDENTSIM_SMTP_SECURITY"` // ssl|starttls|tls|none
	From       string   `yaml:"from" env:"INCIDENTSIM_SMTP_FROM"`
	Username   string   `yaml:"username" env:"INCIDENTSIM_SMTP_USERNAME"`
	Password   string   `yaml:"password" env:"INCIDENTSIM_SMTP_PASSWORD"`
	Recipients []string `yaml:"recipients" env:"INCIDENTSIM_SMTP_RECIPIENTS" env-separator:","`
}

// RedisOutputConfig config for Redis list alerts.
type RedisOutputConfig struct {
	Addr     string `yaml:"addr" env:"INCIDENTSIM_REDIS_ADDR"`
	Password string `yaml:"password" env:"INCIDENTSIM_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"INCIDENTSIM_REDIS_DB"`
	Key      string `yaml:"key" env:"INCIDENTSIM_REDIS_KEY"`
	MaxLen   int64  `yaml:"max_len"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL       string            `yaml:"url" env:"INCIDENTSIM_CLICKHOUSE_URL"`
	Database  string            `yaml:"database"`
	Table     string            `yaml:"table"`
	Username  string            `yaml:"username" env:"INCIDENTSIM_CLICKHOUSE_USER"`
	Password  string            `yaml:"password" env:"INCIDENTSIM_CLICKHOUSE_PASSWORD"`
	Headers   map[string]string `yaml:"headers"`
	BatchSize int               `yaml:"batch_size"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Path   string `yaml:"path" env:"INCIDENTSIM_REPORT_PATH"`
	Format string `yaml:"format" env:"INCIDENTSIM_REPORT_FORMAT"` // pdf|json
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" env:"INCIDENTSIM_LOG_ENABLED"`
	Level   string `yaml:"level" env:"INCIDENTSIM_LOG_LEVEL"`
	File    string `yaml:"file" env:"INCIDENTSIM_LOG_FILE"`
	Console bool   `yaml:"console" env:"INCIDENTSIM_LOG_CONSOLE"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen" env:"INCIDENTSIM_METRICS_LISTEN"`
}

// LoadConfig reads and parses a YAML config file, then applies environment
// overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a configuration from the environment alone.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	return &cfg, nil
}

var (
	geoModes    = []string{"static", "nominatim", "none"}
	alertModes  = []string{"file", "http", "smtp", "redis", "clickhouse", "none"}
	reportKinds = []string{"pdf", "json"}
)

// Validate checks a configuration after defaults have been applied.
func (c *Config) Validate() error {
	s := c.Simulator
	if s.Simulation.Count <= 0 {
		return fmt.Errorf("simulation.count must be positive, got %d", s.Simulation.Count)
	}
	if s.Simulation.Workers <= 0 {
		return fmt.Errorf("simulation.workers must be positive, got %d", s.Simulation.Workers)
	}
	if !oneOf(s.Geo.Mode, geoModes) {
		return fmt.Errorf("unknown geo.mode %q (want %s)", s.Geo.Mode, strings.Join(geoModes, "|"))
	}
	if !oneOf(s.Alerts.Mode, alertModes) {
		return fmt.Errorf("unknown alerts.mode %q (want %s)", s.Alerts.Mode, strings.Join(alertModes, "|"))
	}
	if s.Report.Format != "" && !oneOf(s.Report.Format, reportKinds) {
		return fmt.Errorf("unknown report.format %q (want %s)", s.Report.Format, strings.Join(reportKinds, "|"))
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
