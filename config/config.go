package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DBDriverMySQL    = "mysql"
)

type Config struct {
	AppPort      string
	BaseURL      string
	GinMode      string
	AllowOrigins []string

	DB     DBConfig
	Redis  RedisConfig
	Limits RateLimitConfig

	SnowflakeNode int64
	// DefaultExpiresIn is applied when a shorten request carries no expiresIn.
	DefaultExpiresIn time.Duration
	LogLevel         string
}

type DBConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Pass       string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the lib/pq connection string. Empty parts are left out.
func (c DBConfig) DSN() string {
	parts := [][2]string{
		{"host", c.Host},
		{"user", c.User},
		{"password", c.Pass},
		{"dbname", c.Name},
		{"port", c.Port},
		{"sslmode", c.SSLMode},
	}
	kv := make([]string, 0, len(parts))
	for _, p := range parts {
		if p[1] == "" {
			continue
		}
		kv = append(kv, p[0]+"="+quoteDSNValue(p[1]))
	}
	return strings.Join(kv, " ")
}

// quoteDSNValue single-quotes values lib/pq would otherwise split.
func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// MySQLDSN returns the go-sql-driver/mysql connection string.
func (c DBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		c.User, c.Pass, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Host string
	Port string
}

// Enabled is false when no redis host is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type RateLimitConfig struct {
	Window   time.Duration
	MaxVisit int64
}

// DefaultPath picks the yaml file by APP_ENV.
func DefaultPath() string {
	switch env := os.Getenv("APP_ENV"); env {
	case "docker":
		return "./config/docker.yaml"
	default:
		return "./config/local.yaml"
	}
}

// Load reads the yaml file at path and overlays environment variables, after
// loading a .env file from the working directory if there is one.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{
		AppPort:      v.GetString("APP_PORT"),
		BaseURL:      strings.TrimRight(v.GetString("BASE_URL"), "/"),
		GinMode:      v.GetString("GIN_MODE"),
		AllowOrigins: splitList(v.GetStringSlice("CORS_ALLOW_ORIGINS")),
		DB: DBConfig{
			Driver:     v.GetString("DB_DRIVER"),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Pass:       v.GetString("DB_PASS"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Host: v.GetString("REDIS_HOST"),
			Port: v.GetString("REDIS_PORT"),
		},
		Limits: RateLimitConfig{
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
			MaxVisit: v.GetInt64("RATE_LIMIT_MAX"),
		},
		SnowflakeNode:    v.GetInt64("SNOWFLAKE_NODE"),
		DefaultExpiresIn: time.Duration(v.GetFloat64("DEFAULT_EXPIRES_IN") * float64(time.Hour)),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":5000")
	v.SetDefault("BASE_URL", "http://localhost:5000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ALLOW_ORIGINS", []string{"*"})
	v.SetDefault("DB_DRIVER", DBDriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_NAME", "shortlink")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "shortlink.db")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_MAX", 60)
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("DEFAULT_EXPIRES_IN", 1)
	v.SetDefault("LOG_LEVEL", "")
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite, DBDriverMySQL:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DefaultExpiresIn <= 0 {
		return errors.New("DEFAULT_EXPIRES_IN must be positive")
	}
	if c.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	return nil
}

// splitList accepts both yaml lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isNotExist(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(errors.Cause(err))
}
