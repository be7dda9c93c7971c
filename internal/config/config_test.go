package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"APP_NAME":  "lab-scheduler",
		"APP_ENV":   "test",
		"HTTP_PORT": "8080",
		"DB_HOST":   "localhost",
		"DB_NAME":   "lab",
		"DB_USER":   "lab",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.App.Store)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "5432", cfg.Database.DBPort)
	assert.Equal(t, 60*time.Second, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.RedisEnabled())
	assert.Equal(t, 7*24*time.Hour, cfg.Engine.PriorityHorizon)
	assert.Equal(t, 4, cfg.Engine.PriorityRefreshWorkers)
	assert.Equal(t, 0, cfg.Engine.PriorityRefreshRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQuery)
}

func TestFromEnv_Overrides(t *testing.T) {
	env := baseEnv()
	env["REDIS_HOST"] = "cache"
	env["REDIS_TTL"] = "15s"
	env["PRIORITY_HORIZON"] = "72h"
	env["PRIORITY_REFRESH_RATE"] = "20"
	env["STORE"] = "MEMORY"
	env["DB_SLOW_QUERY"] = "0s"

	cfg, err := FromEnv(envOf(env))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.App.Store)
	assert.True(t, cfg.Redis.RedisEnabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, 15*time.Second, cfg.Redis.TTL)
	assert.Equal(t, 72*time.Hour, cfg.Engine.PriorityHorizon)
	assert.Equal(t, 20, cfg.Engine.PriorityRefreshRate)
	assert.Zero(t, cfg.Database.SlowQuery)
}

func TestFromEnv_MemoryStoreNeedsNoDatabase(t *testing.T) {
	env := map[string]string{"APP_NAME": "a", "APP_ENV": "dev", "HTTP_PORT": "1", "STORE": "memory"}
	_, err := FromEnv(envOf(env))
	assert.NoError(t, err)
}

func TestFromEnv_Errors(t *testing.T) {
	env := baseEnv()
	delete(env, "DB_HOST")
	delete(env, "APP_NAME")
	_, err := FromEnv(envOf(env))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMissingRequiredEnv))
	assert.Contains(t, err.Error(), "APP_NAME, DB_HOST")

	env = baseEnv()
	env["REDIS_TTL"] = "soon"
	env["STORE"] = "sqlite"
	_, err = FromEnv(envOf(env))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalidEnv))
	assert.Contains(t, err.Error(), "REDIS_TTL, STORE")
}
