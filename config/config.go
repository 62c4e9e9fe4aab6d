// Package config loads the prover's runtime configuration from the
// environment, following the same get-or-default helpers the rest of this
// codebase has always used.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GetEnvOrDefault returns the value of the named environment variable, or
// fallback if it is unset or empty.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvIntOrDefault parses the named environment variable as an int,
// falling back to fallback on absence or parse failure.
func GetEnvIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvUint32OrDefault parses the named environment variable as a uint32.
func GetEnvUint32OrDefault(key string, fallback uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fallback
	}
	return uint32(n)
}

// Config is the prover's complete runtime configuration, populated once at
// startup and never mutated afterward.
type Config struct {
	Bind string
	Port int

	NotaryKeyPath string
	ZkDir         string

	MaxSentBytes          uint32
	MaxRecvBytes          uint32
	SessionTimeout        time.Duration
	MaxConcurrentSessions int

	LogLevel  string
	LogFormat string
	Env       string

	AllowedPorts []int // non-443 ports explicitly allow-listed for origin connections
}

// Load reads a .env file if present (development convenience only; absence
// is not an error) and builds a Config from the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Bind: GetEnvOrDefault("PROVER_BIND", "0.0.0.0"),
		Port: GetEnvIntOrDefault("PROVER_PORT", 8080),

		NotaryKeyPath: GetEnvOrDefault("NOTARY_KEY_PATH", "./notary.key"),
		ZkDir:         GetEnvOrDefault("ZK_DIR", "./zk"),

		MaxSentBytes:          GetEnvUint32OrDefault("MAX_SENT_BYTES", 4096),
		MaxRecvBytes:          GetEnvUint32OrDefault("MAX_RECV_BYTES", 65536),
		SessionTimeout:        time.Duration(GetEnvIntOrDefault("SESSION_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxConcurrentSessions: GetEnvIntOrDefault("MAX_CONCURRENT_SESSIONS", 64),

		LogLevel:  GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: GetEnvOrDefault("LOG_FORMAT", "json"),
		Env:       GetEnvOrDefault("PROVER_ENV", "production"),
	}
}
