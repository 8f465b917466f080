package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	lists "rollcall/pkg/platform/strings"
)

// Realtime backends for the change feed.
const (
	RealtimeMemory   = "memory"
	RealtimeRedis    = "redis"
	RealtimePostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr         string
	PublicOrigin string
	LogLevel     slog.Level

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Realtime RealtimeConfig
	Scanner  ScannerConfig
}

// PostgresConfig configures the attendee store. An empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional Redis client used by the redis change feed.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means audit events stay in memory.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Partitions int32
	Replicas   int16
}

// RealtimeConfig selects how row changes reach subscribers.
type RealtimeConfig struct {
	Backend       string
	Channel       string
	SubscriberBuf int
}

// ScannerConfig carries the timings handed to scanning stations.
type ScannerConfig struct {
	StartTimeout time.Duration
	Cooldown     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:         ":8080",
		PublicOrigin: "http://localhost:8080",
		LogLevel:     slog.LevelInfo,
		Postgres: PostgresConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			AuditTopic: "rollcall.audit",
			Partitions: 3,
			Replicas:   1,
		},
		Realtime: RealtimeConfig{
			Channel:       "attendee_changes",
			SubscriberBuf: 16,
		},
		Scanner: ScannerConfig{
			StartTimeout: 10 * time.Second,
			Cooldown:     3 * time.Second,
		},
	}

	var invalid []string

	if addr := env("ROLLCALL_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if origin := env("ROLLCALL_PUBLIC_ORIGIN"); origin != "" {
		cfg.PublicOrigin = strings.TrimRight(origin, "/")
	}
	invalid = parseLogLevel(&cfg.LogLevel, invalid)

	cfg.Postgres.URL = env("DATABASE_URL")
	cfg.Redis.URL = env("REDIS_URL")
	if brokers := lists.SplitList(env("KAFKA_BROKERS"), ","); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	if topic := env("KAFKA_AUDIT_TOPIC"); topic != "" {
		cfg.Kafka.AuditTopic = topic
	}

	cfg.Realtime.Backend = env("REALTIME_BACKEND")
	switch cfg.Realtime.Backend {
	case "":
		cfg.Realtime.Backend = RealtimeMemory
		if cfg.Postgres.URL != "" {
			cfg.Realtime.Backend = RealtimePostgres
		}
	case RealtimeMemory:
	case RealtimeRedis:
		if cfg.Redis.URL == "" {
			invalid = append(invalid, "REALTIME_BACKEND (redis requires REDIS_URL)")
		}
	case RealtimePostgres:
		if cfg.Postgres.URL == "" {
			invalid = append(invalid, "REALTIME_BACKEND (postgres requires DATABASE_URL)")
		}
	default:
		invalid = append(invalid, "REALTIME_BACKEND")
	}

	invalid = parseScanner(&cfg.Scanner, invalid)
	if v := env("REALTIME_SUBSCRIBER_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "REALTIME_SUBSCRIBER_BUFFER")
		} else {
			cfg.Realtime.SubscriberBuf = n
		}
	}

	if len(invalid) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Station configures the scanner station CLI.
type Station struct {
	Server    string
	EventID   string
	Device    string
	StationID string
	LogLevel  slog.Level
	Scanner   ScannerConfig
	// AutoRestart resumes scanning without waiting for the operator.
	AutoRestart bool
}

// StationFromEnv reads station defaults from the environment. Flags
// override them in cmd/scanner.
func StationFromEnv() (Station, error) {
	_ = godotenv.Load()

	cfg := Station{
		Server:   "http://localhost:8080",
		Device:   "-",
		LogLevel: slog.LevelInfo,
		Scanner: ScannerConfig{
			StartTimeout: 10 * time.Second,
			Cooldown:     3 * time.Second,
		},
	}
	if host, err := os.Hostname(); err == nil {
		cfg.StationID = host
	}

	var invalid []string
	if v := env("ROLLCALL_SERVER"); v != "" {
		cfg.Server = strings.TrimRight(v, "/")
	}
	cfg.EventID = env("ROLLCALL_EVENT_ID")
	if v := env("SCANNER_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := env("STATION_ID"); v != "" {
		cfg.StationID = v
	}
	if v := env("SCANNER_AUTO_RESTART"); v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "SCANNER_AUTO_RESTART")
		}
		cfg.AutoRestart = auto
	}
	invalid = parseLogLevel(&cfg.LogLevel, invalid)
	invalid = parseScanner(&cfg.Scanner, invalid)

	if len(invalid) > 0 {
		return Station{}, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func parseLogLevel(level *slog.Level, invalid []string) []string {
	if v := env("LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		}
	}
	return invalid
}

func parseScanner(sc *ScannerConfig, invalid []string) []string {
	if v := env("SCANNER_START_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			invalid = append(invalid, "SCANNER_START_TIMEOUT")
		} else {
			sc.StartTimeout = d
		}
	}
	if v := env("SCANNER_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			invalid = append(invalid, "SCANNER_COOLDOWN")
		} else {
			sc.Cooldown = d
		}
	}
	return invalid
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
