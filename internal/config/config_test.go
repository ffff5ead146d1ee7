package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0 8 * * *", cfg.CronSchedule)
	assert.Equal(t, "Asia/Shanghai", cfg.TimeZone)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
	assert.Equal(t, 2*time.Hour, cfg.LockTTL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 7, cfg.SearchPeriodDays)
	assert.Equal(t, "reports", cfg.StorageContainer)
	assert.Equal(t, "http://localhost:3000/reports/42", cfg.ReportURL(42))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/topics")
	t.Setenv("APP_URL", "https://ops.example.com/")
	t.Setenv("CALL_TIMEOUT", "15s")
	t.Setenv("RUN_IMMEDIATELY", "true")
	t.Setenv("SEARCH_RATE_PER_MINUTE", "10")
	t.Setenv("LLM_PROVIDER", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.CallTimeout)
	assert.True(t, cfg.RunImmediately)
	assert.Equal(t, 10, cfg.SearchRatePerMinute)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "https://ops.example.com/reports/7", cfg.ReportURL(7))
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CALL_TIMEOUT", "soon")
	t.Setenv("SMTP_PORT", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without url",
			env:     map[string]string{"STORAGE_DRIVER": "postgres"},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"STORAGE_DRIVER": "sqlite"},
			wantErr: "STORAGE_DRIVER",
		},
		{
			name:    "bad cron",
			env:     map[string]string{"STORAGE_DRIVER": "memory", "CRON_SCHEDULE": "every day"},
			wantErr: "CRON_SCHEDULE",
		},
		{
			name:    "bad timezone",
			env:     map[string]string{"STORAGE_DRIVER": "memory", "TIMEZONE": "Mars/Olympus"},
			wantErr: "TIMEZONE",
		},
		{
			name:    "bad provider",
			env:     map[string]string{"STORAGE_DRIVER": "memory", "LLM_PROVIDER": "local"},
			wantErr: "LLM_PROVIDER",
		},
		{
			name:    "email without smtp",
			env:     map[string]string{"STORAGE_DRIVER": "memory", "NOTIFICATION_EMAIL": "ops@example.com"},
			wantErr: "SMTP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
