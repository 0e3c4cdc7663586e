// Package config loads the server configuration from flags, environment,
// an optional YAML file and .env.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/content"
	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/Sternrassler/canvas-mcp/pkg/pagination"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyBaseURL       = "canvas.base_url"
	KeyAccessToken   = "canvas.access_token"
	KeyRateInterval  = "canvas.rate_interval"
	KeyTimeout       = "canvas.timeout"
	KeyPerPage       = "canvas.per_page"
	KeyMaxPages      = "canvas.max_pages"
	KeyConcurrency   = "canvas.concurrency"
	KeyRetryAttempts = "canvas.retry_attempts"
	KeyRedisURL      = "redis.url"
	KeyHTTPHost      = "http.host"
	KeyHTTPPort      = "http.port"
	KeyAPIKey        = "http.api_key"
	KeyLogLevel      = "log.level"
	KeyLogPretty     = "log.pretty"
)

// envAliases maps keys to the environment variables read in addition to
// the automatic CANVAS_BASE_URL style names.
var envAliases = map[string][]string{
	KeyHTTPHost: {"HTTP_HOST", "HOST"},
	KeyHTTPPort: {"HTTP_PORT", "PORT"},
	KeyAPIKey:   {"HTTP_API_KEY", "API_KEY"},
}

// Config is the resolved configuration.
type Config struct {
	Canvas CanvasConfig
	Redis  RedisConfig
	HTTP   HTTPConfig
	Log    LogConfig
}

// CanvasConfig configures the Canvas client.
type CanvasConfig struct {
	BaseURL       string
	AccessToken   string
	RateInterval  time.Duration
	Timeout       time.Duration
	PerPage       int
	MaxPages      int
	Concurrency   int
	RetryAttempts int
}

// RedisConfig configures the optional shared quota store.
type RedisConfig struct {
	URL string
}

// HTTPConfig configures the HTTP front end.
type HTTPConfig struct {
	Host   string
	Port   int
	APIKey string
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string
	Pretty bool
}

// New returns a viper instance with defaults and environment bindings.
// cfgFile is optional; when empty ./config.yaml is tried.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyAccessToken, "")
	v.SetDefault(KeyRateInterval, ratelimit.DefaultInterval)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyPerPage, pagination.DefaultConfig().PerPage)
	v.SetDefault(KeyMaxPages, pagination.DefaultConfig().MaxPages)
	v.SetDefault(KeyConcurrency, content.DefaultConcurrency)
	v.SetDefault(KeyRetryAttempts, 1)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyHTTPHost, "0.0.0.0")
	v.SetDefault(KeyHTTPPort, 3001)
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyLogLevel, string(logging.LevelInfo))
	v.SetDefault(KeyLogPretty, false)
}

// Load resolves the configuration from v.
func Load(v *viper.Viper) *Config {
	return &Config{
		Canvas: CanvasConfig{
			BaseURL:       strings.TrimSpace(v.GetString(KeyBaseURL)),
			AccessToken:   strings.TrimSpace(v.GetString(KeyAccessToken)),
			RateInterval:  v.GetDuration(KeyRateInterval),
			Timeout:       v.GetDuration(KeyTimeout),
			PerPage:       v.GetInt(KeyPerPage),
			MaxPages:      v.GetInt(KeyMaxPages),
			Concurrency:   v.GetInt(KeyConcurrency),
			RetryAttempts: v.GetInt(KeyRetryAttempts),
		},
		Redis: RedisConfig{
			URL: v.GetString(KeyRedisURL),
		},
		HTTP: HTTPConfig{
			Host:   v.GetString(KeyHTTPHost),
			Port:   v.GetInt(KeyHTTPPort),
			APIKey: v.GetString(KeyAPIKey),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Pretty: v.GetBool(KeyLogPretty),
		},
	}
}

// Validate checks the settings required to talk to Canvas.
func (c *Config) Validate() error {
	if c.Canvas.BaseURL == "" {
		return errors.New("CANVAS_BASE_URL is required")
	}
	if c.Canvas.AccessToken == "" {
		return errors.New("CANVAS_ACCESS_TOKEN is required")
	}
	if _, err := client.NormalizeBaseURL(c.Canvas.BaseURL); err != nil {
		return err
	}
	if c.Canvas.RateInterval < 0 {
		return fmt.Errorf("%s must not be negative", KeyRateInterval)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid %s: %d", KeyHTTPPort, c.HTTP.Port)
	}
	return nil
}

// ClientConfig returns the Canvas client configuration.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Canvas.BaseURL, c.Canvas.AccessToken)
	cfg.RateInterval = c.Canvas.RateInterval
	cfg.Timeout = c.Canvas.Timeout
	cfg.PerPage = c.Canvas.PerPage
	cfg.MaxPages = c.Canvas.MaxPages
	return cfg
}

// RetryPolicy returns the configured caller-side retry policy.
func (c *Config) RetryPolicy() client.RetryPolicy {
	return client.DefaultRetryPolicy(c.Canvas.RetryAttempts)
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}
