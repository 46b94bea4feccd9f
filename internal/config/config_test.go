package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range []string{"BOT_TOKEN", "ADMIN_ID", "API_BASE_URL", "DB_PATH", "LOG_LEVEL", "DEBUG", "HTTP_TIMEOUT"} {
		t.Setenv(k, env[k])
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"BOT_TOKEN":    "123:abc",
		"ADMIN_ID":     "42",
		"API_BASE_URL": "https://api.example.com/",
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wizard.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"BOT_TOKEN":    "t",
		"ADMIN_ID":     "1",
		"API_BASE_URL": "http://localhost:8081",
		"DB_PATH":      "/tmp/w.db",
		"LOG_LEVEL":    "debug",
		"DEBUG":        "true",
		"HTTP_TIMEOUT": "5s",
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfigErrors(t *testing.T) {
	valid := map[string]string{"BOT_TOKEN": "t", "ADMIN_ID": "1", "API_BASE_URL": "http://localhost:8081"}
	tests := []struct {
		name     string
		override map[string]string
		want     string
	}{
		{"missing token", map[string]string{"BOT_TOKEN": ""}, "BOT_TOKEN"},
		{"missing admin", map[string]string{"ADMIN_ID": ""}, "ADMIN_ID"},
		{"bad admin", map[string]string{"ADMIN_ID": "root"}, "ADMIN_ID"},
		{"missing base url", map[string]string{"API_BASE_URL": ""}, "API_BASE_URL"},
		{"relative base url", map[string]string{"API_BASE_URL": "api/v1"}, "API_BASE_URL"},
		{"bad timeout", map[string]string{"HTTP_TIMEOUT": "soon"}, "HTTP_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range valid {
				env[k] = v
			}
			for k, v := range tt.override {
				env[k] = v
			}
			setEnv(t, env)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
