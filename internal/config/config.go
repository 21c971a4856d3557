package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Fallback signing secrets. Only acceptable outside release mode.
const (
	DefaultAccessSecret  = "access_secret"
	DefaultRefreshSecret = "refresh_secret"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	CORS        CORSConfig        `yaml:"cors"`
	Redis       RedisConfig       `yaml:"redis"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

// IsRelease reports whether the server runs in production mode.
func (s ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// JWTConfig holds the independent signing policies of access and refresh tokens.
type JWTConfig struct {
	AccessSecret     string   `yaml:"access_secret"`
	AccessExpiresIn  Duration `yaml:"access_expires_in"`
	RefreshSecret    string   `yaml:"refresh_secret"`
	RefreshExpiresIn Duration `yaml:"refresh_expires_in"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig for the optional async maintenance queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MaintenanceConfig struct {
	TokenCleanupSchedule string `yaml:"token_cleanup_schedule"` // cron spec
	LogRetentionDays     int    `yaml:"log_retention_days"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps"`
	AuthBurst int     `yaml:"auth_burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration is a time.Duration that unmarshals from strings such as "15m" or "7d".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration accepts Go duration syntax plus a trailing "d" for days.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	// .env is optional; real environment variables take precedence over it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "5000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskmanager.db",
		},
		JWT: JWTConfig{
			AccessSecret:     DefaultAccessSecret,
			AccessExpiresIn:  Duration(15 * time.Minute),
			RefreshSecret:    DefaultRefreshSecret,
			RefreshExpiresIn: Duration(7 * 24 * time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Maintenance: MaintenanceConfig{
			TokenCleanupSchedule: "@every 1h",
			LogRetentionDays:     30,
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   5,
			AuthBurst: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate rejects configurations that are unsafe or unusable.
func (c *Config) Validate() error {
	if c.JWT.AccessExpiresIn <= 0 {
		return errors.New("jwt.access_expires_in must be positive")
	}
	if c.JWT.RefreshExpiresIn <= 0 {
		return errors.New("jwt.refresh_expires_in must be positive")
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("jwt secrets must not be empty")
	}
	if c.Server.IsRelease() {
		if c.JWT.AccessSecret == DefaultAccessSecret || c.JWT.RefreshSecret == DefaultRefreshSecret {
			return errors.New("default jwt secrets are not allowed in release mode")
		}
		if c.JWT.AccessSecret == c.JWT.RefreshSecret {
			return errors.New("access and refresh secrets must differ in release mode")
		}
	}
	return nil
}

func (c *Config) overrideFromEnv() error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_ACCESS_SECRET"); secret != "" {
		c.JWT.AccessSecret = secret
	}
	if secret := os.Getenv("JWT_REFRESH_SECRET"); secret != "" {
		c.JWT.RefreshSecret = secret
	}
	if v := os.Getenv("JWT_ACCESS_EXPIRES_IN"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_ACCESS_EXPIRES_IN: %w", err)
		}
		c.JWT.AccessExpiresIn = Duration(d)
	}
	if v := os.Getenv("JWT_REFRESH_EXPIRES_IN"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
		}
		c.JWT.RefreshExpiresIn = Duration(d)
	}
	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		c.CORS.AllowedOrigins = splitAndTrim(origin, ",")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if schedule := os.Getenv("TOKEN_CLEANUP_SCHEDULE"); schedule != "" {
		c.Maintenance.TokenCleanupSchedule = schedule
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
	return nil
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
