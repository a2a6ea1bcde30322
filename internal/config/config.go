package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port         int                `json:"port"`
	RateLimitMs  int                `json:"rate_limit_ms"`
	LogConfig    logger.LogConfig   `json:"log_config"`
	Firebase     FirebaseConfig     `json:"firebase"`
	Store        StoreConfig        `json:"store"`
	Trigger      TriggerConfig      `json:"trigger"`
	Schedule     ScheduleConfig     `json:"schedule"`
	Cleanup      CleanupConfig      `json:"cleanup"`
	Notification NotificationConfig `json:"notification"`
}

type FirebaseConfig struct {
	ProjectID       string `json:"project_id"`
	CredentialsFile string `json:"credentials_file"`
}

type StoreConfig struct {
	Type string `json:"type"`
}

type TriggerConfig struct {
	Type         string `json:"type"`
	Subscription string `json:"subscription"`
}

type ScheduleConfig struct {
	Timezone       string `json:"timezone"`
	QueueCleanup   string `json:"queue_cleanup"`
	ContentCleanup string `json:"content_cleanup"`
}

type CleanupConfig struct {
	QueueRetentionHours int `json:"queue_retention_hours"`
}

type NotificationConfig struct {
	DefaultTitle     string `json:"default_title"`
	AndroidChannelID string `json:"android_channel_id"`
	ClickAction      string `json:"click_action"`
	Badge            int    `json:"badge"`
}

func (c ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

func (c CleanupConfig) QueueRetention() time.Duration {
	return time.Duration(c.QueueRetentionHours) * time.Hour
}

func Load(path string) (*Config, error) {
	// .env is optional; it only feeds the env fallbacks below.
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.RateLimitMs < 0 {
		return fmt.Errorf("rate_limit_ms must not be negative")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Firebase.ProjectID == "" {
		c.Firebase.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	}
	if c.Firebase.CredentialsFile == "" {
		c.Firebase.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	c.Store.Type = strings.ToLower(strings.TrimSpace(c.Store.Type))
	if c.Store.Type == "" {
		c.Store.Type = "firestore"
	}
	switch c.Store.Type {
	case "firestore", "memory":
	default:
		return fmt.Errorf("store.type must be firestore or memory")
	}

	c.Trigger.Type = strings.ToLower(strings.TrimSpace(c.Trigger.Type))
	if c.Trigger.Type == "" {
		c.Trigger.Type = "store"
	}
	switch c.Trigger.Type {
	case "store":
	case "pubsub":
		if c.Trigger.Subscription == "" {
			return fmt.Errorf("trigger.subscription is required for pubsub trigger")
		}
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for pubsub trigger")
		}
	default:
		return fmt.Errorf("trigger.type must be store or pubsub")
	}

	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Asia/Baku"
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	if c.Schedule.QueueCleanup == "" {
		c.Schedule.QueueCleanup = "0 3 * * *"
	}
	if c.Schedule.ContentCleanup == "" {
		c.Schedule.ContentCleanup = "0 4 * * *"
	}
	if c.Cleanup.QueueRetentionHours <= 0 {
		c.Cleanup.QueueRetentionHours = 24
	}

	if c.Notification.DefaultTitle == "" {
		c.Notification.DefaultTitle = "İmtahan+"
	}
	if c.Notification.AndroidChannelID == "" {
		c.Notification.AndroidChannelID = "high_importance_channel"
	}
	if c.Notification.ClickAction == "" {
		c.Notification.ClickAction = "FLUTTER_NOTIFICATION_CLICK"
	}
	if c.Notification.Badge <= 0 {
		c.Notification.Badge = 1
	}
	return nil
}
