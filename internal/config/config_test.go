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

	assert.Equal(t, "5000", cfg.App.Port)
	assert.Equal(t, "/api/auth", cfg.App.BasePath)
	assert.Equal(t, "sqlite:///./leads.db", cfg.Database.URL)
	assert.Equal(t, IDStrategyRandom, cfg.Leads.IDStrategy)
	assert.Equal(t, 500, cfg.Leads.MaxPageLimit)
	assert.Equal(t, 10, cfg.Leads.DefaultLimit)
	assert.Equal(t, 1440, cfg.Auth.TokenExpiryMinutes)
	assert.Same(t, cfg, Get())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_PATH", "/api/v1/leads/")
	t.Setenv("LEAD_ID_STRATEGY", "Sequential")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("ALLOWED_HOSTS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/leads", cfg.App.BasePath)
	assert.Equal(t, IDStrategySequential, cfg.Leads.IDStrategy)
	assert.Equal(t, 5, cfg.Leads.MaxUploadMB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown id strategy", "LEAD_ID_STRATEGY", "timestamp"},
		{"default above cap", "DEFAULT_PAGE_LIMIT", "1000"},
		{"non-positive upload size", "MAX_UPLOAD_MB", "-1"},
		{"non-positive token expiry", "ACCESS_TOKEN_EXPIRE_MINUTES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseURLs(t *testing.T) {
	tests := []struct {
		url      string
		postgres bool
		dsn      string
	}{
		{
			url:      "postgresql://crm:p:ss@db.internal:6543/leads",
			postgres: true,
			dsn:      "host=db.internal port=6543 user=crm dbname=leads sslmode=disable password=p:ss",
		},
		{
			url:      "postgres://crm@localhost",
			postgres: true,
			dsn:      "host=localhost port=5432 user=crm dbname=postgres sslmode=disable",
		},
		{
			url:      "host=db user=crm dbname=leads sslmode=require",
			postgres: false,
		},
		{url: "sqlite:///./leads.db", postgres: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DatabaseConfig{URL: tt.url}
			assert.Equal(t, tt.postgres, cfg.IsPostgres())
			if tt.postgres {
				assert.Equal(t, tt.dsn, cfg.GetPostgresDSN())
			}
		})
	}
}

func TestGetSQLitePath(t *testing.T) {
	assert.Equal(t, "./leads.db", (&DatabaseConfig{URL: "sqlite:///./leads.db"}).GetSQLitePath())
	assert.Equal(t, "/var/lib/leads.db", (&DatabaseConfig{URL: "sqlite:////var/lib/leads.db"}).GetSQLitePath())
	assert.Equal(t, "leads.db", (&DatabaseConfig{URL: "leads.db"}).GetSQLitePath())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, (&AppConfig{}).Location())
	assert.Equal(t, time.Local, (&AppConfig{Timezone: "Nowhere/Invalid"}).Location())
	assert.Equal(t, "UTC", (&AppConfig{Timezone: "UTC"}).Location().String())
}
