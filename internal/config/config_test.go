package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./database.db", cfg.Database.DSN)
	assert.Equal(t, 5, cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "s3cret", cfg.Auth.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "uuid", cfg.ID.Strategy)
	assert.Equal(t, "dysmsapi.aliyuncs.com", cfg.SMS.Endpoint)
	assert.Equal(t, 7*24*time.Hour, cfg.Log.MaxAge)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "k")
	t.Setenv("AUTH_TOKEN_TTL", "5m")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/accounts?sslmode=disable")
	t.Setenv("ID_STRATEGY", "snowflake")
	t.Setenv("ID_SNOWFLAKE_NODE", "7")
	t.Setenv("LOG_DEV", "1")
	t.Setenv("SMS_SIGN_NAME", "AIGenius")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/accounts?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "snowflake", cfg.ID.Strategy)
	assert.Equal(t, int64(7), cfg.ID.SnowflakeNode)
	assert.True(t, cfg.Log.Dev)
	assert.Equal(t, "AIGenius", cfg.SMS.SignName)
}

func TestParse_SecretRequired(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "")
	_, err := Parse()
	require.Error(t, err)
}

func TestSenderOnly_NoSecretNeeded(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "")
	t.Setenv("SMS_TEMPLATE_CODE", "SMS_1")

	smsCfg, logCfg, err := SenderOnly()
	require.NoError(t, err)
	assert.Equal(t, "SMS_1", smsCfg.TemplateCode)
	assert.NotNil(t, logCfg)
}
