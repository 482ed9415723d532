// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Learner, Controller, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Learner    LearnerConfig    `yaml:"learner"`
	Controller ControllerConfig `yaml:"controller"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	RPC        RPCConfig        `yaml:"rpc"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP admin-API server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	JudgmentsSubmitted string `yaml:"judgmentsSubmitted"`
	IterationComplete  string `yaml:"iterationComplete"`
	BatchRefilled      string `yaml:"batchRefilled"`
}

// RedisConfig holds Redis connection and current-batch caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LearnerConfig holds the learner settings. Only TrainingIterations is
// passed to the controller: its training pass always uses PEGASOS,
// PEGASOS_ETA, controller.SeedLambda and the controller's own seed-negative
// count, whatever Type, EtaType, Lambda and SeedNegatives say.
type LearnerConfig struct {
	Type               string  `yaml:"type"`
	EtaType            string  `yaml:"etaType"`
	Lambda             float64 `yaml:"lambda"`
	TrainingIterations int     `yaml:"trainingIterations"`
	SeedNegatives      int     `yaml:"seedNegatives"`
}

// ControllerConfig controls the BMI control loop's thread pool, seed
// batch size, and the scalability overlay's target N.
type ControllerConfig struct {
	NumThreads    int `yaml:"numThreads"`
	SeedBatchSize int `yaml:"seedBatchSize"`
	TargetN       int `yaml:"targetN"`
	Seed          int64 `yaml:"seed"`
}

// CorpusConfig points at the document and paragraph feature-vector files
// loaded at startup. Construction of these files (the inverted-index /
// feature-vector pipeline) is out of scope; the loader only reads them.
type CorpusConfig struct {
	DocumentsPath  string `yaml:"documentsPath"`
	ParagraphsPath string `yaml:"paragraphsPath"`
	NumFeatures    int    `yaml:"numFeatures"`
}

// RPCConfig controls the JSON-over-TCP session RPC listener.
type RPCConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls distributed tracing (sample rate, endpoint).
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "calengine",
			User:            "calengine",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "cal-engine-group",
			Topics: KafkaTopics{
				JudgmentsSubmitted: "judgments-submitted",
				IterationComplete:  "iteration.complete",
				BatchRefilled:      "batch-refilled",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Learner: LearnerConfig{
			Type:               "PEGASOS",
			EtaType:            "PEGASOS_ETA",
			Lambda:             0.1,
			TrainingIterations: 2000,
			SeedNegatives:      50,
		},
		Controller: ControllerConfig{
			NumThreads:    4,
			SeedBatchSize: 100,
			TargetN:       100,
			Seed:          1,
		},
		Corpus: CorpusConfig{
			DocumentsPath:  "data/documents.json",
			ParagraphsPath: "data/paragraphs.json",
			NumFeatures:    0,
		},
		RPC: RPCConfig{
			Addr:           ":7070",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CAL_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CAL_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CAL_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CAL_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CAL_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CAL_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CAL_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CAL_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CAL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CAL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CAL_LEARNER_TYPE"); v != "" {
		cfg.Learner.Type = v
	}
	if v := os.Getenv("CAL_LEARNER_LAMBDA"); v != "" {
		if lambda, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Learner.Lambda = lambda
		}
	}
	if v := os.Getenv("CAL_CONTROLLER_TARGET_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Controller.TargetN = n
		}
	}
	if v := os.Getenv("CAL_CONTROLLER_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Controller.Seed = seed
		}
	}
	if v := os.Getenv("CAL_CORPUS_DOCUMENTS_PATH"); v != "" {
		cfg.Corpus.DocumentsPath = v
	}
	if v := os.Getenv("CAL_CORPUS_PARAGRAPHS_PATH"); v != "" {
		cfg.Corpus.ParagraphsPath = v
	}
	if v := os.Getenv("CAL_CORPUS_NUM_FEATURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Corpus.NumFeatures = n
		}
	}
	if v := os.Getenv("CAL_RPC_ADDR"); v != "" {
		cfg.RPC.Addr = v
	}
	if v := os.Getenv("CAL_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAL_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
