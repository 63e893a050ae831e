package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures the full runtime configuration for fpingest.
type Config struct {
	App      AppConfig
	Ingest   IngestConfig
	Receiver ReceiverConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Name          string `env:"APP_NAME" envDefault:"fpingest"`
	Environment   string `env:"APP_ENV" envDefault:"development"`
	LogLevel      string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"APP_LOG_FILE"`
	LogMaxSizeMB  int    `env:"APP_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"APP_LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"APP_LOG_MAX_AGE_DAYS" envDefault:"28"`
	LogCompress   bool   `env:"APP_LOG_COMPRESS" envDefault:"false"`
}

// IngestConfig describes the dump being replayed and where it goes.
type IngestConfig struct {
	DumpPath       string        `env:"INGEST_DUMP_PATH" envDefault:"./jsondumps/echoprint-dump-1.json"`
	Endpoint       string        `env:"INGEST_ENDPOINT" envDefault:"http://localhost:37760/ingest"`
	CodeVersion    string        `env:"INGEST_CODE_VERSION" envDefault:"4.12"`
	RequestTimeout time.Duration `env:"INGEST_REQUEST_TIMEOUT" envDefault:"0s"`
}

type ReceiverConfig struct {
	Addr         string        `env:"RECEIVER_ADDR" envDefault:":37760"`
	ReadTimeout  time.Duration `env:"RECEIVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"RECEIVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"RECEIVER_IDLE_TIMEOUT" envDefault:"120s"`

	// DecodeCodes rejects posts whose code is not a valid compressed fingerprint.
	DecodeCodes bool `env:"RECEIVER_DECODE_CODES" envDefault:"false"`
}

// KafkaConfig is disabled while Brokers is empty.
type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	SubmissionTopic  string        `env:"KAFKA_SUBMISSION_TOPIC" envDefault:"fpingest.submissions"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
}

// Enabled reports whether submission events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"none"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"fpingest-dumps"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	Prefix    string `env:"STORAGE_PREFIX" envDefault:"dumps"`
}

// TracingConfig leaves tracing off unless an exporter endpoint is set.
type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=fpingest"`
}

// Load reads an optional .env file from the working directory and then
// parses environment variables into Config. Variables already set in the
// environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
