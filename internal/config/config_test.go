package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:3001", cfg.App.Addr())
	require.Equal(t, "0.0.0.0:3002", cfg.Estimator.Addr())
	require.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	require.Equal(t, "ticketing_session", cfg.Auth.SessionCookie)
	require.Equal(t, "s3cret", cfg.Auth.TokenSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9001")
	t.Setenv("ESTIMATOR_PORT", "9002")
	t.Setenv("AUTH_TOKEN_TTL", "2m")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9001", cfg.App.Port)
	require.Equal(t, "9002", cfg.Estimator.Port)
	require.Equal(t, 2*time.Minute, cfg.Auth.TokenTTL)
	require.Equal(t, 3, cfg.Redis.DB)
}

func TestValidateRejectsLongTokenWindow(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "2h")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsBlankSecret(t *testing.T) {
	cfg := Config{Auth: AuthConfig{TokenSecret: "  ", TokenTTL: time.Minute, SessionTTL: time.Hour, SessionCookie: "c"}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsWeakSecretInProduction(t *testing.T) {
	base := func(secret string) Config {
		return Config{
			App:  AppConfig{Env: "production"},
			Auth: AuthConfig{TokenSecret: secret, TokenTTL: time.Minute, SessionTTL: time.Hour, SessionCookie: "c"},
		}
	}

	cfg := base(DevTokenSecret)
	require.ErrorContains(t, cfg.Validate(), "overridden")

	cfg = base("short-but-custom")
	require.ErrorContains(t, cfg.Validate(), "at least")

	cfg = base("a-properly-long-random-production-secret")
	require.NoError(t, cfg.Validate())

	cfg = base(DevTokenSecret)
	cfg.App.Env = "development"
	require.NoError(t, cfg.Validate())
}

func TestLoadRefusesDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_TOKEN_SECRET", "")
	require.NoError(t, os.Unsetenv("AUTH_TOKEN_SECRET"))

	_, err := Load()
	require.ErrorContains(t, err, "overridden")
}
