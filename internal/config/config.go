package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type NSQ struct {
	NsqdTCPAddr        string // e.g. nsqd:4150
	NsqdHTTPAddr       string // e.g. nsqd:4151, used for stats polling
	LookupHTTPAddr     string // e.g. http://nsqlookupd:4161
	NotificationsTopic string // topic carrying storage-event notifications
	DLQTopic           string // dead letter queue topic
	WorkerChannel      string // channel name for workers
}

type Storage struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Region            string
	UseSSL            bool
	DestinationBucket string
}

// Extractor selects and configures the field extractor implementation.
type Extractor struct {
	Mode    string // "grammar" (default) or "model"
	APIKey  string
	BaseURL string
	Model   string
}

type Worker struct {
	MaxAttempts     int             // Maximum processing attempts per notification
	BackoffSchedule []time.Duration // Retry backoff durations
	JitterPercent   float64         // Backoff jitter percentage (0.0-1.0)
	PublishDLQ      bool            // Whether to publish exhausted notifications to the DLQ topic
	HTTPPort        string          // Worker HTTP metrics port
}

type Config struct {
	AppName      string
	NSQ          NSQ
	Storage      Storage
	Extractor    Extractor
	Worker       Worker
	DB           DB
	AuditEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func parseBackoffSchedule(schedule string) []time.Duration {
	defaults := []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second, 1 * time.Minute, 4 * time.Minute, 10 * time.Minute}
	if schedule == "" {
		return defaults
	}

	parts := strings.Split(schedule, ",")
	durations := make([]time.Duration, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if d, err := time.ParseDuration(part); err == nil {
			durations = append(durations, d)
		}
	}

	if len(durations) == 0 {
		return defaults
	}

	return durations
}

func FromEnv() Config {
	return Config{
		AppName: getenv("APP_NAME", "filerelay"),
		NSQ: NSQ{
			// The queue identity has no defaults; Validate makes its absence
			// fatal before anything is consumed.
			NsqdTCPAddr:        os.Getenv("NSQD_TCP_ADDR"),
			NsqdHTTPAddr:       getenv("NSQD_HTTP_ADDR", "nsqd:4151"),
			LookupHTTPAddr:     getenv("NSQ_LOOKUP_HTTP_ADDR", "http://nsqlookupd:4161"),
			NotificationsTopic: os.Getenv("NSQ_NOTIFICATIONS_TOPIC"),
			DLQTopic:           getenv("NSQ_DLQ_TOPIC", "file-notifications_dlq"),
			WorkerChannel:      getenv("NSQ_WORKER_CHANNEL", "relocators"),
		},
		Storage: Storage{
			Endpoint:          os.Getenv("S3_ENDPOINT"),
			AccessKey:         os.Getenv("S3_ACCESS_KEY"),
			SecretKey:         os.Getenv("S3_SECRET_KEY"),
			Region:            getenv("S3_REGION", "us-east-1"),
			UseSSL:            getenvBool("S3_USE_SSL", true),
			DestinationBucket: strings.TrimSpace(os.Getenv("DESTINATION_BUCKET")),
		},
		Extractor: Extractor{
			Mode:    getenv("EXTRACTOR_MODE", "grammar"),
			APIKey:  os.Getenv("EXTRACTOR_API_KEY"),
			BaseURL: os.Getenv("EXTRACTOR_BASE_URL"),
			Model:   getenv("EXTRACTOR_MODEL", "gpt-4o-mini"),
		},
		Worker: Worker{
			MaxAttempts:     getenvInt("MAX_ATTEMPTS", 6),
			BackoffSchedule: parseBackoffSchedule(getenv("BACKOFF_SCHEDULE", "")),
			JitterPercent:   getenvFloat("BACKOFF_JITTER_PCT", 0.25),
			PublishDLQ:      getenvBool("PUBLISH_DLQ_TOPIC", false),
			HTTPPort:        ":" + getenv("WORKER_HTTP_PORT", "8083"),
		},
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "filerelay"),
		},
		AuditEnabled: getenvBool("AUDIT_ENABLED", false),
	}
}

// Validate checks the settings without which no notification can be
// processed. A failure here is fatal for the whole invocation; nothing is
// consumed from the queue.
func (c Config) Validate() error {
	var missing []string
	if c.NSQ.NsqdTCPAddr == "" {
		missing = append(missing, "NSQD_TCP_ADDR")
	}
	if c.NSQ.NotificationsTopic == "" {
		missing = append(missing, "NSQ_NOTIFICATIONS_TOPIC")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if c.Storage.DestinationBucket == "" {
		missing = append(missing, "DESTINATION_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Extractor.Mode != "grammar" && c.Extractor.Mode != "model" {
		return errors.New("EXTRACTOR_MODE must be grammar or model")
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
