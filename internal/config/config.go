package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores job queue transport settings.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Redis stores delayed-job scheduler settings.
type Redis struct {
	Addr         string
	DB           int
	PollInterval time.Duration
}

// Dispatch stores the driver-search tunables.
type Dispatch struct {
	MaxAttempts        int
	SearchRetryDelay   time.Duration
	ResponseWindow     time.Duration
	ZoneCandidateLimit int
	CitywideFallback   bool
	ClaimRetries       int
}

// Stores configures the marketplace-core stores gateway.
type Stores struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RateLimit stores HTTP rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores pprof server credentials for non-loopback access.
type Pprof struct {
	Port int
	User string
	Pass string
}

// Config stores service settings.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Redis     Redis
	Dispatch  Dispatch
	Stores    Stores
	RateLimit RateLimit
	Pprof     Pprof
}

// Load reads configuration in order: .env (if present) -> environment -> flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      getenvInt("PORT", DefaultPort()),
		DB:        loadDB(),
		Kafka:     loadKafka(),
		Redis:     loadRedis(),
		Dispatch:  loadDispatch(),
		Stores:    loadStores(),
		RateLimit: loadRateLimit(),
		Pprof: Pprof{
			Port: getenvInt("PPROF_PORT", 0),
			User: os.Getenv("PPROF_USER"),
			Pass: os.Getenv("PPROF_PASS"),
		},
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid dispatch max attempts: %d", cfg.Dispatch.MaxAttempts)
	}
	return cfg, nil
}

func loadDB() DB {
	db := DefaultDB()
	db.Host = getenv("POSTGRES_HOST", db.Host)
	db.Port = getenv("POSTGRES_PORT", db.Port)
	db.User = getenv("POSTGRES_USER", db.User)
	db.Pass = getenv("POSTGRES_PASSWORD", db.Pass)
	db.Name = getenv("POSTGRES_DB", db.Name)
	return db
}

func loadKafka() Kafka {
	k := DefaultKafka()
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		k.Brokers = splitCSV(v)
	}
	k.Topic = getenv("KAFKA_DISPATCH_TOPIC", k.Topic)
	k.GroupID = getenv("KAFKA_GROUP_ID", k.GroupID)
	return k
}

func loadRedis() Redis {
	r := DefaultRedis()
	r.Addr = getenv("REDIS_ADDR", r.Addr)
	r.DB = getenvInt("REDIS_DB", r.DB)
	r.PollInterval = getenvDuration("REDIS_POLL_INTERVAL", r.PollInterval)
	return r
}

func loadDispatch() Dispatch {
	d := DefaultDispatch()
	d.MaxAttempts = getenvInt("MAX_DISPATCH_ATTEMPTS", d.MaxAttempts)
	d.SearchRetryDelay = getenvDuration("DISPATCH_SEARCH_RETRY_DELAY", d.SearchRetryDelay)
	d.ResponseWindow = getenvDuration("DISPATCH_RESPONSE_WINDOW", d.ResponseWindow)
	d.ZoneCandidateLimit = getenvInt("DISPATCH_ZONE_CANDIDATE_LIMIT", d.ZoneCandidateLimit)
	d.CitywideFallback = getenvBool("DISPATCH_CITYWIDE_FALLBACK", d.CitywideFallback)
	d.ClaimRetries = getenvInt("DISPATCH_CLAIM_RETRIES", d.ClaimRetries)
	return d
}

func loadStores() Stores {
	s := DefaultStores()
	s.BaseURL = getenv("STORES_BASE_URL", s.BaseURL)
	s.Timeout = getenvDuration("STORES_TIMEOUT", s.Timeout)
	s.MaxAttempts = getenvInt("STORES_MAX_ATTEMPTS", s.MaxAttempts)
	s.BaseDelay = getenvDuration("STORES_BASE_DELAY", s.BaseDelay)
	s.MaxDelay = getenvDuration("STORES_MAX_DELAY", s.MaxDelay)
	return s
}

func loadRateLimit() RateLimit {
	rl := DefaultRateLimit()
	rl.Enabled = getenvBool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Burst = getenvInt("RATE_LIMIT_BURST", rl.Burst)
	rl.TTL = getenvDuration("RATE_LIMIT_TTL", rl.TTL)
	rl.MaxBuckets = getenvInt("RATE_LIMIT_MAX_BUCKETS", rl.MaxBuckets)
	if v := os.Getenv("RATE_LIMIT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rl.Rate = f
		}
	}
	return rl
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
