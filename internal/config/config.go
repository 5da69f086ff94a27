package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from yaml with
// environment-variable overrides for secrets.
type Config struct {
	App struct {
		Env         string   `yaml:"env"`
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"app"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Storage struct {
		Endpoint          string `yaml:"endpoint"`
		Region            string `yaml:"region"`
		AccessKeyID       string `yaml:"access_key_id"`
		SecretAccessKey   string `yaml:"secret_access_key"`
		Bucket            string `yaml:"bucket"`
		BasePath          string `yaml:"base_path"`
		ForcePathStyle    bool   `yaml:"force_path_style"`
		PresignTTLMinutes int    `yaml:"presign_ttl_minutes"`
	} `yaml:"storage"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Search SearchConfig `yaml:"search"`
}

// SearchConfig tunes the unified search core
type SearchConfig struct {
	PostHalfLifeDays        float64 `yaml:"post_half_life_days"`
	ActivityHalfLifeDays    float64 `yaml:"activity_half_life_days"`
	UserSimilarityThreshold float64 `yaml:"user_similarity_threshold"`
	SlowQueryMs             int     `yaml:"slow_query_ms"`
	CacheTTLSeconds         int     `yaml:"cache_ttl_seconds"`
}

// Load reads the yaml config, applies env overrides and defaults
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("S3_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKeyID = v
	}
	if v := os.Getenv("S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "local"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8082
	}
	if len(cfg.App.CORSOrigins) == 0 {
		cfg.App.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Search.PostHalfLifeDays == 0 {
		cfg.Search.PostHalfLifeDays = 30
	}
	if cfg.Search.ActivityHalfLifeDays == 0 {
		cfg.Search.ActivityHalfLifeDays = 7
	}
	if cfg.Search.UserSimilarityThreshold == 0 {
		cfg.Search.UserSimilarityThreshold = 0.1
	}
	if cfg.Search.SlowQueryMs == 0 {
		cfg.Search.SlowQueryMs = 500
	}
	if cfg.Search.CacheTTLSeconds == 0 {
		cfg.Search.CacheTTLSeconds = 30
	}
}

// DSN builds the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}
