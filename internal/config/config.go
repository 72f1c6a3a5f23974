// Package config provides configuration management for soilsense.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Defaults.
const (
	DefaultWorkerPort      = 37811
	DefaultStoreBackend    = BackendSQLite
	DefaultNotifier        = NotifierLocal
	DefaultTickIntervalMS  = 1000
	DefaultProgressStep    = 20
	DefaultReminderMessage = "Time to water your plants!"
	DefaultReminderDelay   = 10
	DefaultMQTTTopic       = "soilsense/reminders"
	DefaultKafkaTopic      = "soilsense.analyses"
	DefaultRedisPrefix     = "soilsense:"

	dataDirName  = ".soilsense"
	dbFileName   = "soilsense.db"
	settingsFile = "settings.json"
	dashboardYML = "dashboard.yml"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Notifier implementations.
const (
	NotifierLocal = "local"
	NotifierMQTT  = "mqtt"
)

// Config holds soilsense settings. JSON keys match settings.json.
type Config struct {
	WorkerPort      int    `json:"SOILSENSE_WORKER_PORT"`
	StoreBackend    string `json:"SOILSENSE_STORE"`
	DBPath          string `json:"SOILSENSE_DB_PATH"`
	MaxConns        int    `json:"SOILSENSE_MAX_CONNS"`
	RedisAddr       string `json:"SOILSENSE_REDIS_ADDR"`
	RedisPassword   string `json:"SOILSENSE_REDIS_PASSWORD"`
	RedisDB         int    `json:"SOILSENSE_REDIS_DB"`
	RedisPrefix     string `json:"SOILSENSE_REDIS_PREFIX"`
	PostgresDSN     string `json:"SOILSENSE_POSTGRES_DSN"`
	TickIntervalMS  int    `json:"SOILSENSE_TICK_INTERVAL_MS"`
	ProgressStep    int    `json:"SOILSENSE_PROGRESS_STEP"`
	Notifier        string `json:"SOILSENSE_NOTIFIER"`
	MQTTBroker      string `json:"SOILSENSE_MQTT_BROKER"`
	MQTTTopic       string `json:"SOILSENSE_MQTT_TOPIC"`
	MQTTClientID    string `json:"SOILSENSE_MQTT_CLIENT_ID"`
	KafkaBrokersRaw string `json:"SOILSENSE_KAFKA_BROKERS"`
	KafkaTopic      string `json:"SOILSENSE_KAFKA_TOPIC"`
	DashboardPath   string `json:"SOILSENSE_DASHBOARD_PATH"`
	ReminderMessage string `json:"SOILSENSE_REMINDER_MESSAGE"`
	ReminderDelay   int    `json:"SOILSENSE_REMINDER_DELAY_SECONDS"`

	// KafkaBrokers is derived from KafkaBrokersRaw.
	KafkaBrokers []string `json:"-"`
}

var (
	globalConfig *Config
	globalOnce   sync.Once
)

// DataDir returns the soilsense data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// DashboardPath returns the default dashboard content file path.
func DashboardPath() string {
	return filepath.Join(DataDir(), dashboardYML)
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkerPort:      DefaultWorkerPort,
		StoreBackend:    DefaultStoreBackend,
		DBPath:          DBPath(),
		MaxConns:        4,
		RedisPrefix:     DefaultRedisPrefix,
		TickIntervalMS:  DefaultTickIntervalMS,
		ProgressStep:    DefaultProgressStep,
		Notifier:        DefaultNotifier,
		MQTTTopic:       DefaultMQTTTopic,
		MQTTClientID:    "soilsense-worker",
		KafkaTopic:      DefaultKafkaTopic,
		DashboardPath:   DashboardPath(),
		ReminderMessage: DefaultReminderMessage,
		ReminderDelay:   DefaultReminderDelay,
	}
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o750)
}

// EnsureSettings writes an empty settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte("{}\n"), 0o600)
}

// EnsureAll creates the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads settings.json over the defaults.
// A missing or malformed settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.normalize()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		cfg = Default()
	}
	cfg.normalize()
	return cfg, nil
}

// Get returns the process-wide configuration, loading it once.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
			cfg.normalize()
		}
		globalConfig = cfg
	})
	return globalConfig
}

// GetWorkerPort returns SOILSENSE_WORKER_PORT from the environment when valid,
// otherwise the configured port.
func GetWorkerPort() int {
	if v := os.Getenv("SOILSENSE_WORKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

// TickInterval returns the progress tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ReminderDelayDuration returns the default reminder delay.
func (c *Config) ReminderDelayDuration() time.Duration {
	return time.Duration(c.ReminderDelay) * time.Second
}

// normalize repairs out-of-range values and derives computed fields.
func (c *Config) normalize() {
	if c.WorkerPort <= 0 {
		c.WorkerPort = DefaultWorkerPort
	}
	switch c.StoreBackend {
	case BackendSQLite, BackendMemory, BackendRedis, BackendPostgres:
	default:
		c.StoreBackend = DefaultStoreBackend
	}
	if c.DBPath == "" {
		c.DBPath = DBPath()
	}
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = DefaultTickIntervalMS
	}
	if c.ProgressStep <= 0 || c.ProgressStep > 100 {
		c.ProgressStep = DefaultProgressStep
	}
	switch c.Notifier {
	case NotifierLocal, NotifierMQTT:
	default:
		c.Notifier = DefaultNotifier
	}
	if c.MQTTTopic == "" {
		c.MQTTTopic = DefaultMQTTTopic
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = DefaultKafkaTopic
	}
	if c.ReminderMessage == "" {
		c.ReminderMessage = DefaultReminderMessage
	}
	if c.ReminderDelay < 0 {
		c.ReminderDelay = DefaultReminderDelay
	}
	c.KafkaBrokers = splitTrim(c.KafkaBrokersRaw)
}

// splitTrim splits a comma-separated list, dropping blanks.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
