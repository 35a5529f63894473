package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment     string
	HTTPPort        string
	Debug           bool
	LogDir          string
	Location        string
	CredentialsFile string
	ProbeSchedule   string
	NotifyURLs      []string
	FortiGate       FortiGateConfig
	Redis           RedisConfig
}

// FortiGateConfig holds connection details for the firewall management API.
type FortiGateConfig struct {
	Host          string
	VDOM          string
	AccessToken   string
	AddressGroup  string
	SkipTLSVerify bool
	// Timeout of zero leaves outbound calls without a deadline.
	Timeout time.Duration
}

// RedisConfig holds connection details for the blocklist cache. DB is the
// index new entries are written to; ListDB is the index the public listing
// reads from.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ListDB   int
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:     getEnv("FORTIBAN_ENV", "production"),
		HTTPPort:        getEnv("FORTIBAN_HTTP_PORT", "8080"),
		LogDir:          getEnv("FORTIBAN_LOG_DIR", "/var/log/fortiban"),
		Location:        getEnv("FORTIBAN_LOCATION", ""),
		CredentialsFile: getEnv("FORTIBAN_CREDENTIALS_FILE", "credentials.yaml"),
		ProbeSchedule:   getEnv("FORTIBAN_PROBE_SCHEDULE", "@every 1m"),
		NotifyURLs:      splitList(os.Getenv("FORTIBAN_NOTIFY_URLS")),
		FortiGate: FortiGateConfig{
			Host:         os.Getenv("FORTIGATE_HOST"),
			VDOM:         getEnv("FORTIGATE_VDOM", "root"),
			AccessToken:  os.Getenv("FORTIGATE_ACCESS_TOKEN"),
			AddressGroup: getEnv("FORTIGATE_ADDRESS_GROUP", "MaliciousAuto"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	var err error
	if cfg.Debug, err = getEnvBool("FORTIBAN_DEBUG", false); err != nil {
		return Config{}, err
	}
	if cfg.FortiGate.SkipTLSVerify, err = getEnvBool("FORTIGATE_SKIP_TLS_VERIFY", true); err != nil {
		return Config{}, err
	}
	if cfg.FortiGate.Timeout, err = getEnvDuration("FORTIGATE_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.Redis.ListDB, err = getEnvInt("REDIS_LIST_DB", cfg.Redis.DB); err != nil {
		return Config{}, err
	}

	if strings.EqualFold(cfg.ProbeSchedule, "off") {
		cfg.ProbeSchedule = ""
	}

	if cfg.FortiGate.Host == "" {
		return Config{}, fmt.Errorf("FORTIGATE_HOST is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
