package remito_test

import (
	"testing"
	"time"

	remito "github.com/goliatone/go-remito"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REMITO_SIGNING_KEY", string(testSigningKey))

	cfg, err := remito.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, "remito", cfg.GetIssuer())
	assert.Equal(t, "remito_session", cfg.GetCookieName())
	assert.Equal(t, 1000, cfg.CacheCapacity)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, remito.DefaultAuditQueueSize, cfg.AuditQueue)
	assert.Equal(t, testSigningKey, cfg.GetSigningKey())
	assert.Empty(t, cfg.BootstrapEmail)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("REMITO_SIGNING_KEY", string(testSigningKey))
	t.Setenv("REMITO_SESSION_TTL", "30m")
	t.Setenv("REMITO_CACHE_CAPACITY", "16")
	t.Setenv("REMITO_LOG_LEVEL", "debug")
	t.Setenv("REMITO_BOOTSTRAP_EMAIL", "root@remito.test")

	cfg, err := remito.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 16, cfg.CacheCapacity)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "root@remito.test", cfg.BootstrapEmail)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(error) bool
	}{
		{
			name:  "missing signing key",
			env:   map[string]string{"REMITO_SIGNING_KEY": ""},
			check: remito.IsInvalidInput,
		},
		{
			name:  "short signing key",
			env:   map[string]string{"REMITO_SIGNING_KEY": "short"},
			check: remito.IsInvalidInput,
		},
		{
			name:  "unknown log level",
			env:   map[string]string{"REMITO_SIGNING_KEY": string(testSigningKey), "REMITO_LOG_LEVEL": "verbose"},
			check: remito.IsInvalidInput,
		},
		{
			name:  "zero queue",
			env:   map[string]string{"REMITO_SIGNING_KEY": string(testSigningKey), "REMITO_AUDIT_QUEUE": "0"},
			check: remito.IsInvalidInput,
		},
		{
			name:  "malformed duration",
			env:   map[string]string{"REMITO_SIGNING_KEY": string(testSigningKey), "REMITO_SESSION_TTL": "soon"},
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := remito.LoadConfig()
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}
