package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	LDAP       LDAPConfig       `yaml:"ldap"`
	Redis      RedisConfig      `yaml:"redis"`
	Links      LinksConfig      `yaml:"links"`
	Generation GenerationConfig `yaml:"generation"`
	Audit      AuditConfig      `yaml:"audit"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type LDAPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDN       string `yaml:"base_dn"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserFilter   string `yaml:"user_filter"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// RedisConfig for optional async generation queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LinksConfig holds the public URL bases used when building wrapper links.
type LinksConfig struct {
	ShortURLBase  string `yaml:"short_url_base"`  // e.g. https://sl.example.com
	SurveyURLBase string `yaml:"survey_url_base"` // e.g. https://surveys.example.com
}

// GenerationConfig tunes the batch link-generation pipeline. Retry and
// threshold values are policy knobs, not correctness constants.
type GenerationConfig struct {
	Concurrency         int     `yaml:"concurrency"`           // max in-flight creates per batch
	MaxRetries          int     `yaml:"max_retries"`           // attempts per link after the first
	RetryBaseDelayMs    int     `yaml:"retry_base_delay_ms"`   // backoff base, doubled per attempt
	FailureThreshold    float64 `yaml:"failure_threshold"`     // batch fails above this ratio
	BatchTimeoutMinutes int     `yaml:"batch_timeout_minutes"` // overall deadline for one batch
	StaleAfterHours     int     `yaml:"stale_after_hours"`     // in-progress links older than this are swept
}

type AuditConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

var GlobalConfig *Config

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

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "surveylink.db",
		},
		JWT: JWTConfig{
			Secret:     "surveylink-secret-key-change-in-production",
			ExpireHour: 24,
		},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Links: LinksConfig{
			ShortURLBase:  "http://localhost:8080/s",
			SurveyURLBase: "http://localhost:8080",
		},
		Generation: GenerationConfig{
			Concurrency:         10,
			MaxRetries:          3,
			RetryBaseDelayMs:    200,
			FailureThreshold:    0.10,
			BatchTimeoutMinutes: 10,
			StaleAfterHours:     48,
		},
		Audit: AuditConfig{
			RetentionDays: 30,
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
	}
}

// applyDefaults fills zero values left by a partial config file so the
// generation pipeline never runs with an unbounded pool or a zero timeout.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Generation.Concurrency <= 0 {
		c.Generation.Concurrency = def.Generation.Concurrency
	}
	if c.Generation.MaxRetries < 0 {
		c.Generation.MaxRetries = def.Generation.MaxRetries
	}
	if c.Generation.RetryBaseDelayMs <= 0 {
		c.Generation.RetryBaseDelayMs = def.Generation.RetryBaseDelayMs
	}
	if c.Generation.FailureThreshold <= 0 || c.Generation.FailureThreshold > 1 {
		c.Generation.FailureThreshold = def.Generation.FailureThreshold
	}
	if c.Generation.BatchTimeoutMinutes <= 0 {
		c.Generation.BatchTimeoutMinutes = def.Generation.BatchTimeoutMinutes
	}
	if c.Generation.StaleAfterHours <= 0 {
		c.Generation.StaleAfterHours = def.Generation.StaleAfterHours
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = def.Audit.RetentionDays
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = def.RateLimit.RPS
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.Links.ShortURLBase == "" {
		c.Links.ShortURLBase = def.Links.ShortURLBase
	}
	if c.Links.SurveyURLBase == "" {
		c.Links.SurveyURLBase = def.Links.SurveyURLBase
	}
	c.Links.ShortURLBase = strings.TrimSuffix(c.Links.ShortURLBase, "/")
	c.Links.SurveyURLBase = strings.TrimSuffix(c.Links.SurveyURLBase, "/")
}

// RetryBaseDelay returns the configured backoff base as a duration.
func (g *GenerationConfig) RetryBaseDelay() time.Duration {
	return time.Duration(g.RetryBaseDelayMs) * time.Millisecond
}

// BatchTimeout returns the overall deadline for one batch invocation.
func (g *GenerationConfig) BatchTimeout() time.Duration {
	return time.Duration(g.BatchTimeoutMinutes) * time.Minute
}

// StaleAfter returns the idle window after which an in-progress link is
// considered abandoned.
func (g *GenerationConfig) StaleAfter() time.Duration {
	return time.Duration(g.StaleAfterHours) * time.Hour
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
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
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if base := os.Getenv("SHORT_URL_BASE"); base != "" {
		c.Links.ShortURLBase = base
	}
	if base := os.Getenv("SURVEY_URL_BASE"); base != "" {
		c.Links.SurveyURLBase = base
	}
	if v := os.Getenv("GENERATION_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.Concurrency = n
		}
	}
	if v := os.Getenv("GENERATION_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxRetries = n
		}
	}
	if v := os.Getenv("GENERATION_FAILURE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generation.FailureThreshold = f
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
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

	if url != "" {
		c.Redis.Addr = url
	}
}
