package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	DBPath      string
	LogLevel    string
	Feed        FeedConfig
	Scheduler   SchedulerConfig
	Analytics   AnalyticsConfig
	Export      ExportConfig
	Channels    []ChannelRule
}

type FeedConfig struct {
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type AnalyticsConfig struct {
	PeriodDays         int
	HighValueThreshold int64
	PropertyPathPrefix string
	DefaultCategory    string
	TrafficPath        string
}

type ExportConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// ChannelRule maps raw analytics source/medium values onto one canonical
// marketing channel. Rules from config/channels/*.yaml extend the built-in
// defaults in services.
type ChannelRule struct {
	Channel string   `yaml:"channel"`
	Sources []string `yaml:"sources"`
	Mediums []string `yaml:"mediums"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "analytics.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Feed: FeedConfig{
			URL: os.Getenv("CATALOG_FEED_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("ANALYZE_CRON"),
		},
		Analytics: AnalyticsConfig{
			PeriodDays:         getEnvInt("PERIOD_DAYS", 30),
			HighValueThreshold: int64(getEnvInt("HIGH_VALUE_THRESHOLD", 500000)),
			PropertyPathPrefix: getEnv("PROPERTY_PATH_PREFIX", "/properties/"),
			DefaultCategory:    getEnv("DEFAULT_CATEGORY", "Property Pages"),
			TrafficPath:        getEnv("TRAFFIC_JSON", "traffic.json"),
		},
		Export: ExportConfig{
			Bucket:          os.Getenv("EXPORT_S3_BUCKET"),
			Region:          getEnv("EXPORT_S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("EXPORT_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("EXPORT_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("EXPORT_S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("EXPORT_S3_PREFIX", "reports"),
		},
	}

	if interval := os.Getenv("ANALYZE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadChannelRules(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadChannelRules() error {
	configDir := "config/channels"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var rules []ChannelRule
		if err := yaml.Unmarshal(data, &rules); err != nil {
			return err
		}

		c.Channels = append(c.Channels, rules...)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
