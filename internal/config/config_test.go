package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "imtahan-test")
	cfg, err := Load(writeConfig(t, `{"port": 8080, "store": {"type": "Memory"}}`))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "memory", cfg.Store.Type)
	require.Equal(t, "store", cfg.Trigger.Type)
	require.Equal(t, "imtahan-test", cfg.Firebase.ProjectID)
	require.Equal(t, "Asia/Baku", cfg.Schedule.Timezone)
	require.Equal(t, "0 3 * * *", cfg.Schedule.QueueCleanup)
	require.Equal(t, "0 4 * * *", cfg.Schedule.ContentCleanup)
	require.Equal(t, 24*time.Hour, cfg.Cleanup.QueueRetention())
	require.Equal(t, "İmtahan+", cfg.Notification.DefaultTitle)
	require.Equal(t, "high_importance_channel", cfg.Notification.AndroidChannelID)
	require.Equal(t, "FLUTTER_NOTIFICATION_CLICK", cfg.Notification.ClickAction)
	require.Equal(t, 1, cfg.Notification.Badge)
	require.Zero(t, cfg.RateLimitWindow())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing port", body: `{}`},
		{name: "bad store", body: `{"port": 1, "store": {"type": "redis"}}`},
		{name: "bad trigger", body: `{"port": 1, "trigger": {"type": "kafka"}}`},
		{name: "pubsub without subscription", body: `{"port": 1, "firebase": {"project_id": "p"}, "trigger": {"type": "pubsub"}}`},
		{name: "bad timezone", body: `{"port": 1, "schedule": {"timezone": "Mars/Olympus"}}`},
		{name: "negative rate limit", body: `{"port": 1, "rate_limit_ms": -5}`},
		{name: "malformed", body: `{"port":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
