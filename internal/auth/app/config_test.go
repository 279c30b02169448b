package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_AT_SECRET", "access")
	t.Setenv("JWT_RT_SECRET", "refresh")
}

func TestParseConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := ParseConfig()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 3001, cfg.API.Port)
	require.Equal(t, "redis://localhost:6379/0", cfg.API.RedisURL)
	require.Empty(t, cfg.API.Domain)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	require.Equal(t, 30*24*time.Hour, cfg.JWT.BlacklistTTL)
	require.Equal(t, "token", cfg.RevocationScope)
	require.Equal(t, 24*time.Hour, cfg.Telegram.InitDataTTL)
	require.Equal(t, 5*time.Minute, cfg.QR.CodeTTL)
	require.Equal(t, 24*time.Hour, cfg.QR.Retention)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "auth.db", cfg.Database.File)
	require.Equal(t, "redis", cfg.Cache.Driver)
	require.Equal(t, "api_cache:", cfg.Cache.KeyPrefix)
	require.Equal(t, "memory", cfg.Notifier.Driver)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, time.Hour, cfg.HousekeepingEvery)
	require.Empty(t, cfg.CORSOrigins)
}

func TestParseConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("API_PORT", "8080")
	t.Setenv("API_DOMAIN", "example.com")
	t.Setenv("CORS_ORIGIN", "https://a.example,https://b.example")
	t.Setenv("JWT_AT_EXP", "5m")
	t.Setenv("AUTH_REVOCATION_SCOPE", "user")
	t.Setenv("CACHE_DRIVER", "bolt")
	t.Setenv("NOTIFIER_DRIVER", "redis")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://auth@localhost/auth")

	cfg, err := ParseConfig()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.API.Port)
	require.Equal(t, "example.com", cfg.API.Domain)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	require.Equal(t, "user", cfg.RevocationScope)
	require.Equal(t, "bolt", cfg.Cache.Driver)
	require.Equal(t, "postgres://auth@localhost/auth", cfg.Database.DSN)
}

func TestParseConfigMissingSecrets(t *testing.T) {
	t.Setenv("JWT_AT_SECRET", "")
	t.Setenv("JWT_RT_SECRET", "")

	_, err := ParseConfig()
	require.ErrorContains(t, err, "JWT_AT_SECRET")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown revocation scope", map[string]string{"AUTH_REVOCATION_SCOPE": "device"}, "device"},
		{"unknown database driver", map[string]string{"DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"postgres without dsn", map[string]string{"DATABASE_DRIVER": "postgres"}, "DATABASE_DSN"},
		{"unknown cache driver", map[string]string{"CACHE_DRIVER": "memcached"}, "CACHE_DRIVER"},
		{"unknown notifier driver", map[string]string{"NOTIFIER_DRIVER": "kafka"}, "NOTIFIER_DRIVER"},
		{"zero access ttl", map[string]string{"JWT_AT_EXP": "0s"}, "JWT_AT_EXP"},
		{"zero qr ttl", map[string]string{"QR_CODE_TTL": "0s"}, "QR_CODE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := ParseConfig()
			require.ErrorContains(t, err, tt.want)
		})
	}
}
