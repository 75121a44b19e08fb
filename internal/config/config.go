package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database   *dbConfig
	Service    *svcConfig
	Storage    *storageConfig
	AI         *aiConfig
	Extraction *extractionConfig
	Kafka      *kafkaConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"contracts"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"EXTRACTION_SERVICE_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"EXTRACTION_SERVICE_METRICS_ADDRESS" default:":8080"`
	BaseUrl        string `envconfig:"EXTRACTION_SERVICE_BASE_URL" default:"https://localhost:3443"`
	LogLevel       string `envconfig:"EXTRACTION_SERVICE_LOG_LEVEL" default:"info"`
	// TriggerMode selects the in-flight trigger policy: "reuse" returns the
	// existing extraction unchanged, "conflict" rejects with a conflict error.
	TriggerMode     string `envconfig:"EXTRACTION_SERVICE_TRIGGER_MODE" default:"reuse"`
	MigrationFolder string `envconfig:"EXTRACTION_SERVICE_MIGRATIONS_FOLDER" default:"migrations"`
}

type storageConfig struct {
	Endpoint  string `envconfig:"EXTRACTION_SERVICE_S3_ENDPOINT" default:"localhost:9000"`
	Bucket    string `envconfig:"EXTRACTION_SERVICE_S3_BUCKET" default:"contracts"`
	AccessKey string `envconfig:"EXTRACTION_SERVICE_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"EXTRACTION_SERVICE_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"EXTRACTION_SERVICE_S3_USE_SSL" default:"false"`
	// FileServiceUrl is the direct-download fallback used when the object
	// store cannot resolve a file reference.
	FileServiceUrl string `envconfig:"EXTRACTION_SERVICE_FILE_SERVICE_URL" default:""`
}

type aiConfig struct {
	BaseUrl     string  `envconfig:"EXTRACTION_SERVICE_AI_BASE_URL" default:""`
	Token       string  `envconfig:"EXTRACTION_SERVICE_AI_TOKEN" default:""`
	Model       string  `envconfig:"EXTRACTION_SERVICE_AI_MODEL" default:"gpt-4o"`
	Temperature float64 `envconfig:"EXTRACTION_SERVICE_AI_TEMPERATURE" default:"0.1"`
}

type extractionConfig struct {
	PromptName string `envconfig:"EXTRACTION_SERVICE_PROMPT_NAME" default:"clause-extraction"`
	MaxPages   int    `envconfig:"EXTRACTION_SERVICE_MAX_PAGES" default:"20"`
	MaxWorkers int    `envconfig:"EXTRACTION_SERVICE_MAX_WORKERS" default:"4"`
	// ProcessingTimeoutMinutes is the staleness window after which the reaper
	// fails a stuck processing row.
	ProcessingTimeoutMinutes int `envconfig:"EXTRACTION_SERVICE_PROCESSING_TIMEOUT_MINUTES" default:"30"`
	ReaperIntervalMinutes    int `envconfig:"EXTRACTION_SERVICE_REAPER_INTERVAL_MINUTES" default:"5"`
}

type kafkaConfig struct {
	Brokers  []string `envconfig:"EXTRACTION_SERVICE_KAFKA_BROKERS" default:""`
	Topic    string   `envconfig:"EXTRACTION_SERVICE_KAFKA_TOPIC" default:"contracts.extraction.audit"`
	ClientID string   `envconfig:"EXTRACTION_SERVICE_KAFKA_CLIENT_ID" default:"extraction-service"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns the configuration without consulting the environment.
// Tests use it with an sqlite database.
func NewDefault() *Config {
	return &Config{
		// shared cache so every pooled connection sees the same in-memory db
		Database:   &dbConfig{Type: "sqlite", Name: "file::memory:?cache=shared"},
		Service:    &svcConfig{Address: ":3443", LogLevel: "info", TriggerMode: "reuse", MigrationFolder: "migrations"},
		Storage:    &storageConfig{},
		AI:         &aiConfig{Model: "gpt-4o", Temperature: 0.1},
		Extraction: &extractionConfig{PromptName: "clause-extraction", MaxPages: 20, MaxWorkers: 4, ProcessingTimeoutMinutes: 30, ReaperIntervalMinutes: 5},
		Kafka:      &kafkaConfig{Topic: "contracts.extraction.audit", ClientID: "extraction-service"},
	}
}
