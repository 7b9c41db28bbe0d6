package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Tracking TrackingConfig `yaml:"tracking"`
	Shoe     ShoeConfig     `yaml:"shoe"`
	EV       EVConfig       `yaml:"ev"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelPath           string        `yaml:"model_path"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	NMSThreshold        float64       `yaml:"nms_threshold"`
	InferenceInterval   time.Duration `yaml:"inference_interval"`
	WorkerCount         int           `yaml:"worker_count"`
	FrameWidth          int           `yaml:"frame_width"`
}

type TrackingConfig struct {
	ConfirmationFrames int     `yaml:"confirmation_frames"`
	RemovalFrames      int     `yaml:"removal_frames"`
	IoUThreshold       float64 `yaml:"iou_threshold"`
	OverlapThreshold   float64 `yaml:"overlap_threshold"`
}

type ShoeConfig struct {
	DeckCount int `yaml:"deck_count"`
}

type EVConfig struct {
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	FrameRetention int `yaml:"frame_retention"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.ConfidenceThreshold == 0 {
		cfg.Vision.ConfidenceThreshold = 0.5
	}
	if cfg.Vision.NMSThreshold == 0 {
		cfg.Vision.NMSThreshold = 0.45
	}
	if cfg.Vision.InferenceInterval == 0 {
		cfg.Vision.InferenceInterval = 250 * time.Millisecond
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 4
	}
	if cfg.Vision.FrameWidth == 0 {
		cfg.Vision.FrameWidth = 1280
	}
	if cfg.Tracking.ConfirmationFrames == 0 {
		cfg.Tracking.ConfirmationFrames = 5
	}
	if cfg.Tracking.RemovalFrames == 0 {
		cfg.Tracking.RemovalFrames = 10
	}
	if cfg.Tracking.IoUThreshold == 0 {
		cfg.Tracking.IoUThreshold = 0.3
	}
	if cfg.Tracking.OverlapThreshold == 0 {
		cfg.Tracking.OverlapThreshold = 0.1
	}
	if cfg.Shoe.DeckCount == 0 {
		cfg.Shoe.DeckCount = 1
	}
	if cfg.EV.SubjectPrefix == "" {
		cfg.EV.SubjectPrefix = "ev"
	}
	if cfg.EV.Timeout == 0 {
		cfg.EV.Timeout = 2 * time.Second
	}
	if cfg.Storage.FrameRetention == 0 {
		cfg.Storage.FrameRetention = 500
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DW_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("DW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DW_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("DW_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("DW_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("DW_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("DW_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("DW_MODEL_PATH"); v != "" {
		cfg.Vision.ModelPath = v
	}
	if v := os.Getenv("DW_VISION_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
	if v := os.Getenv("DW_DECK_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Shoe.DeckCount = n
		}
	}
	if v := os.Getenv("DW_EV_SUBJECT_PREFIX"); v != "" {
		cfg.EV.SubjectPrefix = v
	}
	if v := os.Getenv("DW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
