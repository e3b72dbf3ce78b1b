// Package config loads service settings from an optional YAML file, a
// .env file and the process environment, in increasing order of
// precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Bus drivers.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config is the full settings tree shared by both binaries.
type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Reports    HTTP       `yaml:"reports"`
	Postgres   Postgres   `yaml:"postgres"`
	Mongo      Mongo      `yaml:"mongo"`
	Redis      Redis      `yaml:"redis"`
	Bus        Bus        `yaml:"bus"`
	Store      Store      `yaml:"store"`
	Log        Log        `yaml:"log"`
	Projection Projection `yaml:"projection"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Postgres holds PostgreSQL connection settings.
type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// DSN builds a libpq-compatible connection string.
func (c Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Bus selects and tunes the event transport.
type Bus struct {
	Driver        string        `yaml:"driver"`
	StreamPrefix  string        `yaml:"stream_prefix"`
	Group         string        `yaml:"group"`
	Consumer      string        `yaml:"consumer"`
	MaxDeliveries int           `yaml:"max_deliveries"`
	Block         time.Duration `yaml:"block"`
	ClaimMinIdle  time.Duration `yaml:"claim_min_idle"`
	ClaimInterval time.Duration `yaml:"claim_interval"`
}

// Store selects the read-model backend.
type Store struct {
	Driver string `yaml:"driver"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Projection struct {
	// Dedup skips messages whose id was already applied.
	Dedup          bool          `yaml:"dedup"`
	DedupRetention time.Duration `yaml:"dedup_retention"`
}

// Default returns the local-development settings.
func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Reports: HTTP{
			Addr:            ":8081",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Postgres: Postgres{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "ticketing",
			SSLMode:  "disable",
			Migrate:  true,
		},
		Mongo: Mongo{URI: "mongodb://localhost:27017", Database: "ticketing_reports"},
		Redis: Redis{Addr: "localhost:6379"},
		Bus: Bus{
			Driver:        BusRedis,
			StreamPrefix:  "ticketing",
			Group:         "projections",
			Consumer:      hostname(),
			MaxDeliveries: 5,
			Block:         5 * time.Second,
			ClaimMinIdle:  30 * time.Second,
			ClaimInterval: 5 * time.Second,
		},
		Store:      Store{Driver: StoreMongo},
		Log:        Log{Level: "info", Format: "text"},
		Projection: Projection{DedupRetention: 7 * 24 * time.Hour},
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// missing YAML file named by path is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("TICKETING_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Reports.Addr = getEnv("REPORTS_ADDR", c.Reports.Addr)

	c.Postgres.Host = getEnv("DB_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnv("DB_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("DB_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("DB_PASSWORD", c.Postgres.Password)
	c.Postgres.DBName = getEnv("DB_NAME", c.Postgres.DBName)
	c.Postgres.SSLMode = getEnv("DB_SSLMODE", c.Postgres.SSLMode)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}

	c.Bus.Driver = getEnv("BUS_DRIVER", c.Bus.Driver)
	c.Bus.Consumer = getEnv("BUS_CONSUMER", c.Bus.Consumer)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("PROJECTION_DEDUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PROJECTION_DEDUP: %w", err)
		}
		c.Projection.Dedup = b
	}
	return nil
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Bus.Driver {
	case BusMemory, BusRedis:
	default:
		errs = append(errs, fmt.Errorf("bus.driver %q: want %s or %s", c.Bus.Driver, BusMemory, BusRedis))
	}
	switch c.Store.Driver {
	case StoreMemory, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want %s or %s", c.Store.Driver, StoreMemory, StoreMongo))
	}
	if c.Bus.MaxDeliveries <= 0 {
		errs = append(errs, errors.New("bus.max_deliveries must be positive"))
	}
	if c.Bus.Block <= 0 || c.Bus.ClaimMinIdle <= 0 || c.Bus.ClaimInterval <= 0 {
		errs = append(errs, errors.New("bus block and claim durations must be positive"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Projection.Dedup && c.Projection.DedupRetention <= 0 {
		errs = append(errs, errors.New("projection.dedup_retention must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "projector-1"
}
