package notifier

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration surface. Delays are seconds so config
// files stay in the units operators already use.
type FileConfig struct {
	WebhookURL       string   `yaml:"webhook_url"`
	Keywords         []string `yaml:"keywords"`
	PriorityKeywords []string `yaml:"priority_keywords"`
	IntervalSeconds  int      `yaml:"interval_seconds"`

	// Sources lists the collector names to run each cycle. Feeds registers a
	// generic HTTP JSON collector per name -> url.
	Sources []string          `yaml:"sources"`
	Feeds   map[string]string `yaml:"feeds"`

	NotificationDelay        float64 `yaml:"notification_delay"`
	PriorityDelay            float64 `yaml:"priority_delay"`
	MaxNotificationsPerCycle int     `yaml:"max_notifications_per_cycle"`

	DB                    string `yaml:"db"`
	RetentionDays         int    `yaml:"retention_days"`
	CollectTimeoutSeconds int    `yaml:"collect_timeout_seconds"`
	Debug                 bool   `yaml:"debug"`

	// Addr for the read-only browse API binary.
	APIAddr string `yaml:"api_addr"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *FileConfig) ApplyDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 3600
	}
	if c.NotificationDelay <= 0 {
		c.NotificationDelay = 1.0
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CollectTimeoutSeconds <= 0 {
		c.CollectTimeoutSeconds = 60
	}
	if strings.TrimSpace(c.DB) == "" {
		c.DB = "tickets.db"
	}
	if strings.TrimSpace(c.APIAddr) == "" {
		c.APIAddr = ":8080"
	}
}

// Validate checks the keys whose absence is fatal at daemon startup.
func (c *FileConfig) Validate() error {
	if strings.TrimSpace(c.WebhookURL) == "" {
		return fmt.Errorf("webhook_url is required")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	return nil
}

// Interval converts interval_seconds to a duration.
func (c *FileConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Delay converts notification_delay to a duration.
func (c *FileConfig) Delay() time.Duration {
	return time.Duration(c.NotificationDelay * float64(time.Second))
}

// PriorityDelayDuration converts priority_delay to a duration.
func (c *FileConfig) PriorityDelayDuration() time.Duration {
	return time.Duration(c.PriorityDelay * float64(time.Second))
}

// CollectTimeout converts collect_timeout_seconds to a duration.
func (c *FileConfig) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutSeconds) * time.Second
}

// Retention converts retention_days to a duration.
func (c *FileConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
