// Package config builds application configuration from environment variables
// (with an optional config file for local development) so main stays lean.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for both the API server and the worker.
type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Neo4j       Neo4jConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	ObjectStore ObjectStoreConfig
	OCR         OCRConfig
	Worker      WorkerConfig
	Auth        AuthConfig
	Log         LogConfig
}

type ServerConfig struct {
	Addr string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	JobTopic      string
	ConsumerGroup string
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type OCRConfig struct {
	// Mode selects the extractor implementation: "stub" is the deterministic
	// capability-absent mode used when no OCR engine is deployed.
	Mode string
}

type WorkerConfig struct {
	MaxAttempts    int
	RetryBackoff   time.Duration
	SoftTimeLimit  time.Duration
	HardTimeLimit  time.Duration
	LockTTL        time.Duration
	SweepInterval  time.Duration
	StuckThreshold time.Duration
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
}

type LogConfig struct {
	Level string
	JSON  bool
}

// Load reads configuration from the environment (TALANTA_ prefix) with
// defaults suitable for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TALANTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Optional config file for local development; env always wins.
	v.SetConfigName("talanta")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Auth.JWTSigningKey == "" {
		// Development default; must be overridden in production.
		cfg.Auth.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "talanta")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "neo4j")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.minidleconns", 2)
	v.SetDefault("redis.dialtimeout", 5*time.Second)
	v.SetDefault("redis.readtimeout", 3*time.Second)
	v.SetDefault("redis.writetimeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.jobtopic", "verification.jobs")
	v.SetDefault("kafka.consumergroup", "verification-workers")

	v.SetDefault("objectstore.endpoint", "localhost:9000")
	v.SetDefault("objectstore.accesskey", "minioadmin")
	v.SetDefault("objectstore.secretkey", "minioadmin")
	v.SetDefault("objectstore.bucket", "talanta-verifications")
	v.SetDefault("objectstore.region", "us-east-1")
	v.SetDefault("objectstore.usessl", false)

	v.SetDefault("ocr.mode", "stub")

	v.SetDefault("worker.maxattempts", 3)
	v.SetDefault("worker.retrybackoff", 60*time.Second)
	v.SetDefault("worker.softtimelimit", 25*time.Minute)
	v.SetDefault("worker.hardtimelimit", 30*time.Minute)
	v.SetDefault("worker.lockttl", 30*time.Minute)
	v.SetDefault("worker.sweepinterval", 15*time.Minute)
	v.SetDefault("worker.stuckthreshold", time.Hour)

	v.SetDefault("auth.jwtissuer", "talanta")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}
