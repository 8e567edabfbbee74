package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hanainplan-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "http://localhost:8081", cfg.Gateway.HanaBaseURL)
	assert.Equal(t, "http://localhost:8082", cfg.Gateway.KookminBaseURL)
	assert.Equal(t, "http://localhost:8083", cfg.Gateway.ShinhanBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Gateway.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.VerificationTTL)
	assert.Equal(t, 6, cfg.Scheduler.RunHour)
	assert.Equal(t, time.Minute, cfg.Scheduler.CheckInterval)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HANAINPLAN_APP_PORT", "9090")
	t.Setenv("HANAINPLAN_GATEWAY_HANA_BASE_URL", "https://hana.example.com")
	t.Setenv("HANAINPLAN_SCHEDULER_RUN_HOUR", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://hana.example.com", cfg.Gateway.HanaBaseURL)
	assert.Equal(t, 3, cfg.Scheduler.RunHour)
}

func TestLoadRejectsBadGatewayURL(t *testing.T) {
	t.Setenv("HANAINPLAN_GATEWAY_KOOKMIN_BASE_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.kookmin_base_url")
}

func TestLoadRejectsOutOfRangeRunHour(t *testing.T) {
	t.Setenv("HANAINPLAN_SCHEDULER_RUN_HOUR", "25")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.run_hour")
}

func TestProductionRequiresSecureDatabase(t *testing.T) {
	t.Setenv("HANAINPLAN_APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")

	t.Setenv("HANAINPLAN_DATABASE_PASSWORD", "secret")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode")

	t.Setenv("HANAINPLAN_DATABASE_SSLMODE", "require")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
}

func TestValidatePoolSettings(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "hanainplan",
		Password: "p@ss/word#1",
		DBName:   "hanainplan",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word#1", "special characters must be escaped")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
