// Package config reads the panel's environment configuration and builds
// its logger.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// BackendOptions points at the CRM backend.
type BackendOptions struct {
	URL         string        `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	CatalogPath string        `env:"CATALOG_PATH" envDefault:"/api/catalog/"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	CatalogTTL  time.Duration `env:"CATALOG_TTL" envDefault:"5m"`
	AuthHeader  string        `env:"BACKEND_AUTH_HEADER"`
	AuthToken   string        `env:"BACKEND_AUTH_TOKEN"`
}

// SessionOptions selects where per-browser state lives.
type SessionOptions struct {
	Store        string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisURL     string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix  string        `env:"REDIS_PREFIX" envDefault:"crmpanel:session:"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SidCookieKey string        `env:"SID_COOKIE_KEY" envDefault:"sid"`
}

// Validate checks the session configuration.
func (s *SessionOptions) Validate() error {
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	switch s.Store {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(s.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("invalid SESSION_STORE=%q (expected memory|redis)", s.Store)
	}
	if s.TTL < 0 {
		return fmt.Errorf("SESSION_TTL must be non-negative, got %s", s.TTL)
	}
	return nil
}

// PrometheusOptions controls the metrics endpoint.
type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/metrics"`
}

// Configuration is the full runtime configuration.
type Configuration struct {
	Backend    BackendOptions
	Session    SessionOptions
	Prometheus PrometheusOptions

	ServerPort      int    `env:"PORT" envDefault:"3200"`
	Environment     string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"text"`
	DefaultLocale   string `env:"DEFAULT_LOCALE" envDefault:"fa"`
	Theme           string `env:"THEME" envDefault:"crm"`
	ThemeVariant    string `env:"THEME_VARIANT"`
	FormsDir        string `env:"FORMS_DIR"`
	TemplatesDir    string `env:"TEMPLATES_DIR"`
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	SocketAddress   string `env:"-"`

	logger *logrus.Logger
}

// LoadEnv loads the env files that exist and returns how many were read.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files then the process environment.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return c, c.finish()
}

// FromMap parses configuration from an explicit environment, ignoring the
// process environment.
func FromMap(environ map[string]string) (*Configuration, error) {
	c := &Configuration{}
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return c, c.finish()
}

func (c *Configuration) finish() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.logger = c.newLogger(os.Stderr)
	if c.Environment == "production" {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Configuration) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT=%d", c.ServerPort)
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL=%q", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Backend.Timeout)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT=%q (expected text|json)", c.LogFormat)
	}
	if !strings.HasPrefix(c.Prometheus.Path, "/") {
		return fmt.Errorf("PROMETHEUS_METRICS_PATH must start with /, got %q", c.Prometheus.Path)
	}
	return c.Session.Validate()
}

// CatalogURL joins the backend URL and the catalog path.
func (c *Configuration) CatalogURL() string {
	return strings.TrimRight(c.Backend.URL, "/") + "/" + strings.TrimLeft(c.Backend.CatalogPath, "/")
}

// Logger returns the configured logger.
func (c *Configuration) Logger() *logrus.Logger {
	if c.logger == nil {
		c.logger = c.newLogger(os.Stderr)
	}
	return c.logger
}

// LogrusLogLevel maps LOG_LEVEL to a logrus level.
func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(c.LogrusLogLevel())
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// SetLogOutput redirects the logger.
func (c *Configuration) SetLogOutput(out io.Writer) {
	c.Logger().SetOutput(out)
}
