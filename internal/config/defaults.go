package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "dispatch",
	Pass: "dispatch",
	Name: "dispatch_db",
}

var defaultKafka = Kafka{
	Brokers: []string{"127.0.0.1:9092"},
	Topic:   "dispatch.jobs",
	GroupID: "service-dispatch-worker",
}

var defaultRedis = Redis{
	Addr:         "127.0.0.1:6379",
	DB:           0,
	PollInterval: time.Second,
}

var defaultDispatch = Dispatch{
	MaxAttempts:        5,
	SearchRetryDelay:   30 * time.Second,
	ResponseWindow:     60 * time.Second,
	ZoneCandidateLimit: 20,
	CitywideFallback:   true,
	ClaimRetries:       3,
}

var defaultStores = Stores{
	BaseURL:     "http://localhost:8081",
	Timeout:     2 * time.Second,
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       50,
	Burst:      100,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultRedis returns the default Redis settings.
func DefaultRedis() Redis {
	return defaultRedis
}

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultStores returns the default stores gateway settings.
func DefaultStores() Stores {
	return defaultStores
}

// DefaultRateLimit returns the default rate limiter settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}
