package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Fundamentals FundamentalsConfig
	Analysis     AnalysisConfig
	Sessions     SessionsConfig
	Redis        RedisConfig
	SQLite       SQLiteConfig
	Export       ExportConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Environment    string
	MaxQueryLength int
}

// FundamentalsConfig drives the screener scraper. MaxAttempts of 1 means no retries.
type FundamentalsConfig struct {
	BaseURL          string
	UserAgent        string
	TimeoutSec       int
	MaxAttempts      int
	FailureThreshold uint32
	OpenTimeoutSec   int
}

type AnalysisConfig struct {
	LexiconPath string
	RandomSeed  int64
}

type SessionsConfig struct {
	Backend    string
	TTLMinutes int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type ExportConfig struct {
	FileName string
}

// RateLimitConfig selects where request counts live. "redis" shares the
// limit across every instance pointed at the same Redis.
type RateLimitConfig struct {
	Backend              string
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-analyst")

	return load(v)
}

// LoadFile reads the given YAML file instead of searching the default paths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("ANALYST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 4194304)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.maxQueryLength", 2000)

	v.SetDefault("fundamentals.baseURL", "https://www.screener.in")
	v.SetDefault("fundamentals.userAgent", "Mozilla/5.0")
	v.SetDefault("fundamentals.timeoutSec", 15)
	v.SetDefault("fundamentals.maxAttempts", 1)
	v.SetDefault("fundamentals.failureThreshold", 5)
	v.SetDefault("fundamentals.openTimeoutSec", 30)

	v.SetDefault("analysis.lexiconPath", "")
	v.SetDefault("analysis.randomSeed", 0)

	v.SetDefault("sessions.backend", "memory")
	v.SetDefault("sessions.ttlMinutes", 720)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("sqlite.enabled", true)
	v.SetDefault("sqlite.path", "./data/analyst.db")

	v.SetDefault("export.fileName", "Research_Analyst_Report.xlsx")

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxQueryLength <= 0 {
		return fmt.Errorf("invalid server.maxQueryLength %d: must be > 0", c.Server.MaxQueryLength)
	}
	if c.Fundamentals.BaseURL == "" {
		return fmt.Errorf("fundamentals.baseURL is required")
	}
	if c.Fundamentals.TimeoutSec < 1 {
		return fmt.Errorf("invalid fundamentals.timeoutSec %d: must be >= 1", c.Fundamentals.TimeoutSec)
	}
	if c.Fundamentals.MaxAttempts < 1 {
		return fmt.Errorf("invalid fundamentals.maxAttempts %d: must be >= 1", c.Fundamentals.MaxAttempts)
	}
	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("sessions.backend must be 'memory' or 'redis', got '%s'", c.Sessions.Backend)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit.backend must be 'memory' or 'redis', got '%s'", c.RateLimit.Backend)
	}
	if c.RateLimit.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("invalid ratelimit.maxRequestsPerMinute %d: must be > 0", c.RateLimit.MaxRequestsPerMinute)
	}
	if c.SQLite.Enabled && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required when sqlite is enabled")
	}
	if !strings.HasSuffix(strings.ToLower(c.Export.FileName), ".xlsx") {
		return fmt.Errorf("export.fileName must end in .xlsx, got '%s'", c.Export.FileName)
	}
	return nil
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fundamentals.TimeoutSec) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
