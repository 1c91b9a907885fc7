package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Storage backend: "local", "mongo" or "sql"
	StoreBackend  string
	MongoURI      string
	LocalStoreDir string
	SQLDSN        string
	RedisURL      string

	// Auth
	JWTSecret              string
	JWTAccessTTL           time.Duration
	JWTRefreshTTL          time.Duration
	AdminEmails            []string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Vulnerability scanner allowlist
	ScannerIP           string
	ScannerUserAgent    string
	ScannerPathPrefixes []string

	// RSS aggregation
	RSSMaxItems          int
	RSSFetchTimeout      time.Duration
	RSSCacheTTL          time.Duration
	RSSMaxConcurrency    int
	RSSMaxBodyBytes      int64
	RSSAllowPrivateHosts bool
	RSSRespectRobots     bool
	RSSWarmupInterval    time.Duration

	// Audit log retention
	AuditRetentionDays     int
	AuditRetentionSchedule string

	AllowedOrigins     string
	PortalSettingsFile string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "local")),
		MongoURI:      getEnv("MONGODB_URI", ""),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		SQLDSN:        getEnv("SQL_DSN", "sqlite://./data/portal.db"),
		RedisURL:      getEnv("REDIS_URL", ""),

		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTAccessTTL:           getDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:          getDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour),
		AdminEmails:            lowerAll(getListEnv("ADMIN_EMAILS")),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		ScannerIP:           getEnv("SCANNER_IP", ""),
		ScannerUserAgent:    getEnv("SCANNER_USER_AGENT", ""),
		ScannerPathPrefixes: getListEnvDefault("SCANNER_PATH_PREFIXES", []string{"/api/"}),

		RSSMaxItems:          getIntEnv("RSS_MAX_ITEMS", 20),
		RSSFetchTimeout:      getDurationEnv("RSS_FETCH_TIMEOUT", 10*time.Second),
		RSSCacheTTL:          getDurationEnv("RSS_CACHE_TTL", 5*time.Minute),
		RSSMaxConcurrency:    getIntEnv("RSS_MAX_CONCURRENCY", 8),
		RSSMaxBodyBytes:      int64(getIntEnv("RSS_MAX_BODY_BYTES", 5*1024*1024)),
		RSSAllowPrivateHosts: getBoolEnv("RSS_ALLOW_PRIVATE_HOSTS", false),
		RSSRespectRobots:     getBoolEnv("RSS_RESPECT_ROBOTS", true),
		RSSWarmupInterval:    getDurationEnv("RSS_WARMUP_INTERVAL", 10*time.Minute),

		AuditRetentionDays:     getIntEnv("AUDIT_RETENTION_DAYS", 365),
		AuditRetentionSchedule: getEnv("AUDIT_RETENTION_SCHEDULE", "0 2 * * *"),

		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", ""),
		PortalSettingsFile: getEnv("PORTAL_SETTINGS_FILE", ""),
	}
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsAdminEmail reports whether the email is in the ADMIN_EMAILS list
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, trimming blanks
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getListEnvDefault(key string, defaultValue []string) []string {
	if list := getListEnv(key); len(list) > 0 {
		return list
	}
	return defaultValue
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
