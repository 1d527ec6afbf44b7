package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "0.0591", cfg.PayrollFallbackRate.String())
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "0 2 1 * *", cfg.DepreciationCron)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PAYROLL_FALLBACK_RATE", "0.05")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "0.05", cfg.PayrollFallbackRate.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_RejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"rate above one":  {"PAYROLL_FALLBACK_RATE": "1.5"},
		"negative rate":   {"PAYROLL_FALLBACK_RATE": "-0.01"},
		"zero rate limit": {"RATE_LIMIT_PER_MINUTE": "0"},
		"malformed rate":  {"PAYROLL_FALLBACK_RATE": "six percent"},
		"blank dsn":       {"PG_DSN": " "},
		"min over max":    {"PG_MAX_CONNS": "2", "PG_MIN_CONNS": "4"},
		"negative db":     {"REDIS_DB": "-1"},
		"unknown level":   {"LOG_LEVEL": "chatty"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestIsProduction_NilConfig(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}

func TestConfigConnectionSettings(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "20")
	t.Setenv("PG_STATEMENT_TIMEOUT", "5s")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	pool := cfg.PoolConfig("contabi-api")
	assert.Equal(t, int32(20), pool.MaxConns)
	assert.Equal(t, "5s", pool.StatementTimeout.String())
	assert.Equal(t, "contabi-api", pool.ApplicationName)

	redisOpts := cfg.RedisOptions()
	assert.Equal(t, "s3cret", redisOpts.Password)
	assert.Equal(t, 2, redisOpts.DB)
	assert.Equal(t, redisOpts.DB, cfg.AsynqRedis().DB)
}
