package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
	LogLevel    string
	LogFormat   string
	Store       string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
	// SlowQuery is the duration above which a statement is logged; 0 disables it.
	SlowQuery time.Duration

	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type EngineConfig struct {
	WriteTimeout           time.Duration
	PriorityHorizon        time.Duration
	PriorityRefreshEvery   time.Duration
	PriorityRefreshWorkers int
	// PriorityRefreshRate caps refresh batches written per second; 0 is unlimited.
	PriorityRefreshRate int
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

// Load reads the process environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Variables already set in the environment win.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}
	num := func(key string, def int) int {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return def
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
		LogLevel:    opt("LOG_LEVEL", "info"),
		LogFormat:   opt("LOG_FORMAT", "text"),
		Store:       strings.ToLower(opt("STORE", StorePostgres)),
	}

	cfg.Database = DatabaseConfig{
		DBHost:                opt("DB_HOST", ""),
		DBPort:                opt("DB_PORT", "5432"),
		DBName:                opt("DB_NAME", ""),
		DBUser:                opt("DB_USER", ""),
		DBPassword:            strings.TrimSpace(getenv("DB_PASSWORD")),
		DBSSLMode:             opt("DB_SSL_MODE", "disable"),
		ConnectTimeout:        dur("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(num("DB_POOL_MAX_CONNS", 0)),
		PoolMinConns:          int32(num("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   dur("DB_POOL_MAX_CONN_LIFETIME", 0),
		PoolMaxConnIdleTime:   dur("DB_POOL_MAX_CONN_IDLE_TIME", 0),
		PoolHealthCheckPeriod: dur("DB_POOL_HEALTH_CHECK_PERIOD", 0),
		SlowQuery:             dur("DB_SLOW_QUERY", 250*time.Millisecond),
		MigrationsDir:         opt("DB_MIGRATIONS_DIR", ""),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST", ""),
		Port:     opt("REDIS_PORT", "6379"),
		Password: strings.TrimSpace(getenv("REDIS_PASSWORD")),
		DB:       num("REDIS_DB", 0),
		TTL:      dur("REDIS_TTL", 60*time.Second),
	}

	cfg.Engine = EngineConfig{
		WriteTimeout:           dur("ENGINE_WRITE_TIMEOUT", 10*time.Second),
		PriorityHorizon:        dur("PRIORITY_HORIZON", 7*24*time.Hour),
		PriorityRefreshEvery:   dur("PRIORITY_REFRESH_INTERVAL", 5*time.Minute),
		PriorityRefreshWorkers: num("PRIORITY_REFRESH_WORKERS", 4),
		PriorityRefreshRate:    num("PRIORITY_REFRESH_RATE", 0),
	}

	switch cfg.App.Store {
	case StorePostgres:
		for key, v := range map[string]string{"DB_HOST": cfg.Database.DBHost, "DB_NAME": cfg.Database.DBName, "DB_USER": cfg.Database.DBUser} {
			if v == "" {
				missing = append(missing, key)
			}
		}
	case StoreMemory:
	default:
		invalid = append(invalid, "STORE")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(sortedUnique(missing), ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(sortedUnique(invalid), ", "))
	}

	return cfg, nil
}

// RedisEnabled is false when no host is configured; the cache then bypasses itself.
func (c RedisConfig) RedisEnabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
