package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Services ServicesConfig
	Promo    PromoConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr или путь к файлу
}

type DatabaseConfig struct {
	Path     string
	SeedPath string
}

type SessionConfig struct {
	Backend string // memory, redis
	TTL     time.Duration
}

// AuthConfig описывает учётную запись администратора, создаваемая при первом запуске.
type AuthConfig struct {
	AdminLogin    string
	AdminPassword string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig описывает S3-совместимое хранилище панорам.
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PresignTTL   time.Duration
}

type ServicesConfig struct {
	CatalogURL string
	AuthURL    string
}

type PromoConfig struct {
	SweepInterval time.Duration
}

// Load загружает конфигурацию: значения по умолчанию, затем config.yaml, затем переменные окружения.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:         v.GetString("port"),
		Environment:  v.GetString("env"),
		ReadTimeout:  v.GetInt("read_timeout"),
		WriteTimeout: v.GetInt("write_timeout"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Path:     v.GetString("db.path"),
			SeedPath: v.GetString("db.seed_path"),
		},
		Session: SessionConfig{
			Backend: v.GetString("session.backend"),
			TTL:     v.GetDuration("session.ttl"),
		},
		Auth: AuthConfig{
			AdminLogin:    v.GetString("auth.admin_login"),
			AdminPassword: v.GetString("auth.admin_password"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("s3.endpoint"),
			Region:       v.GetString("s3.region"),
			Bucket:       v.GetString("s3.bucket"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			UsePathStyle: v.GetBool("s3.use_path_style"),
			PresignTTL:   v.GetDuration("s3.presign_ttl"),
		},
		Services: ServicesConfig{
			CatalogURL: v.GetString("catalog.url"),
			AuthURL:    v.GetString("auth.url"),
		},
		Promo: PromoConfig{
			SweepInterval: v.GetDuration("promo.sweep_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("env", "development")
	v.SetDefault("read_timeout", 10)
	v.SetDefault("write_timeout", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("db.path", "data/db/estate.db")
	v.SetDefault("db.seed_path", "")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("auth.admin_login", "admin")
	v.SetDefault("auth.admin_password", "admin")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.use_path_style", true)
	v.SetDefault("s3.presign_ttl", 15*time.Minute)

	v.SetDefault("catalog.url", "http://localhost:3001")
	v.SetDefault("auth.url", "http://localhost:3002")

	v.SetDefault("promo.sweep_interval", time.Minute)
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Auth.AdminLogin == "" || c.Auth.AdminPassword == "" {
		return fmt.Errorf("admin credentials must be set")
	}
	if c.IsProduction() && c.Auth.AdminPassword == "admin" {
		return fmt.Errorf("default admin password is not allowed in production")
	}
	if c.Promo.SweepInterval <= 0 {
		return fmt.Errorf("promo sweep interval must be positive")
	}
	return nil
}

// IsProduction сообщает, запущен ли сервис в production-окружении.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StorageEnabled сообщает, настроено ли S3-хранилище для панорам.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != ""
}
