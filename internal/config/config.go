package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netsentry/internal/model"
)

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	UploadDir  string `yaml:"upload_dir"`
}

// ClickHouseConfig holds the connection settings for the results store.
type ClickHouseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Database      string `yaml:"database"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	FlushInterval string `yaml:"flush_interval"`
}

// NATSConfig holds the message-bus settings, both for consuming records and
// for publishing scoring events.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	RecordSubject string `yaml:"record_subject"`
	EventPrefix   string `yaml:"event_prefix"`
}

// CaptureConfig holds the packet-capture and replay settings.
type CaptureConfig struct {
	Interface string `yaml:"interface"`
	PcapPath  string `yaml:"pcap_path"`
	LogPath   string `yaml:"log_path"`
	Seed      int64  `yaml:"seed"`
}

// TrainingConfig holds the model-training defaults.
type TrainingConfig struct {
	TestSize float64 `yaml:"test_size"`
	ModelDir string  `yaml:"model_dir"`
}

// StreamDefaults are the scoring-loop settings a stream request can
// override per call.
type StreamDefaults struct {
	Source         string             `yaml:"source"`
	Interval       string             `yaml:"interval"`
	Anonymize      bool               `yaml:"anonymize"`
	Filter         model.FilterConfig `yaml:"filter"`
	AlertThreshold float64            `yaml:"alert_threshold"`
	Model          string             `yaml:"model"`
}

// ToStreamConfig resolves the defaults into a stream request.
func (d StreamDefaults) ToStreamConfig() (model.StreamConfig, error) {
	cfg := model.StreamConfig{
		Source:    d.Source,
		Anonymize: d.Anonymize,
		Filter:    d.Filter,
		Model:     d.Model,
	}
	if d.Interval != "" {
		interval, err := time.ParseDuration(d.Interval)
		if err != nil {
			return cfg, fmt.Errorf("invalid stream interval: %w", err)
		}
		cfg.Interval = interval
	}
	if d.AlertThreshold != 0 {
		threshold := d.AlertThreshold
		cfg.AlertThreshold = &threshold
	}
	return cfg, nil
}

// SMTPConfig holds the outbound mail settings for alert digests.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AlertingConfig holds the digest notifier settings.
type AlertingConfig struct {
	Enabled        bool       `yaml:"enabled"`
	DigestInterval string     `yaml:"digest_interval"`
	MinProbability float64    `yaml:"min_probability"`
	SMTP           SMTPConfig `yaml:"smtp"`
}

// AIConfig holds the language-model settings for alert analysis.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	Capture    CaptureConfig    `yaml:"capture"`
	Training   TrainingConfig   `yaml:"training"`
	Stream     StreamDefaults   `yaml:"stream"`
	Alerting   AlertingConfig   `yaml:"alerting"`
	AI         AIConfig         `yaml:"ai"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "data/uploads"
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.FlushInterval == "" {
		c.ClickHouse.FlushInterval = "5s"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.RecordSubject == "" {
		c.NATS.RecordSubject = "netsentry.records"
	}
	if c.NATS.EventPrefix == "" {
		c.NATS.EventPrefix = "netsentry.events"
	}
	if c.Capture.Interface == "" {
		c.Capture.Interface = "eth0"
	}
	if c.Training.TestSize == 0 {
		c.Training.TestSize = 0.2
	}
	if c.Training.ModelDir == "" {
		c.Training.ModelDir = "data/models"
	}
	if c.Alerting.DigestInterval == "" {
		c.Alerting.DigestInterval = "5m"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
}
