package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMongoDatabase  = "studio"
	defaultRedisAddr       = ""
	defaultJWTSecret       = "change-me-in-production"
	defaultJWTExpire       = "720h"
	defaultCookieExpire    = "30"
	defaultAppPort         = "5000"
	defaultAppEnv          = "local"
	defaultCurrency        = "usd"
	defaultCalendlyAPIURL  = "https://api.calendly.com"
	defaultExternalTimeout = "10s"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load merges config/app.json and .env over the defaults. Process
// environment variables always win over both.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":          defaultAppEnv,
		"APP_PORT":         defaultAppPort,
		"MONGO_URI":        "",
		"MONGO_DB":         defaultMongoDatabase,
		"JWT_SECRET":       defaultJWTSecret,
		"JWT_EXPIRE":       defaultJWTExpire,
		"COOKIE_EXPIRE":    defaultCookieExpire,
		"REDIS_ADDR":       defaultRedisAddr,
		"REDIS_PASSWORD":   "",
		"CURRENCY":         defaultCurrency,
		"CALENDLY_API_URL": defaultCalendlyAPIURL,
		"EXTERNAL_TIMEOUT": defaultExternalTimeout,
		"STORAGE_DISK":     "local",
	}
}

func AppEnv() string { _ = Load(); return get("APP_ENV", defaultAppEnv) }

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

func AppPort() string { _ = Load(); return get("APP_PORT", defaultAppPort) }

// ClientURL is the frontend origin used in emailed links.
func ClientURL() string { _ = Load(); return get("CLIENT_URL", "http://localhost:3000") }

// ── Database ─────────────────────────────────────────────────────────────────

// MongoURI returns the connection string, or "" when no database is
// configured (the server then falls back to in-memory stores).
func MongoURI() string      { _ = Load(); return get("MONGO_URI", "") }
func MongoDatabase() string { _ = Load(); return get("MONGO_DB", defaultMongoDatabase) }

func RedisAddr() string     { _ = Load(); return get("REDIS_ADDR", defaultRedisAddr) }
func RedisPassword() string { _ = Load(); return get("REDIS_PASSWORD", "") }

func AMQPURL() string { _ = Load(); return get("AMQP_URL", "") }

// ── Auth ─────────────────────────────────────────────────────────────────────

func JWTSecret() string {
	_ = Load()
	return get("JWT_SECRET", defaultJWTSecret)
}

// JWTExpiry accepts a Go duration ("720h") or a day count suffixed with "d".
func JWTExpiry() time.Duration {
	_ = Load()
	return parseDuration(get("JWT_EXPIRE", defaultJWTExpire), 30*24*time.Hour)
}

// CookieExpiry is the auth cookie lifetime; COOKIE_EXPIRE is in days.
func CookieExpiry() time.Duration {
	_ = Load()
	days, err := strconv.Atoi(get("COOKIE_EXPIRE", defaultCookieExpire))
	if err != nil || days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// ── Integrations ─────────────────────────────────────────────────────────────

func StripeSecretKey() string     { _ = Load(); return get("STRIPE_SECRET_KEY", "") }
func StripeWebhookSecret() string { _ = Load(); return get("STRIPE_WEBHOOK_SECRET", "") }
func Currency() string            { _ = Load(); return strings.ToLower(get("CURRENCY", defaultCurrency)) }

func CalendlyAPIURL() string        { _ = Load(); return get("CALENDLY_API_URL", defaultCalendlyAPIURL) }
func CalendlyToken() string         { _ = Load(); return get("CALENDLY_API_TOKEN", "") }
func CalendlyWebhookSecret() string { _ = Load(); return get("CALENDLY_WEBHOOK_SECRET", "") }

// ExternalTimeout bounds every outbound call to the payment gateway, the
// scheduling service and import fetches.
func ExternalTimeout() time.Duration {
	_ = Load()
	return parseDuration(get("EXTERNAL_TIMEOUT", defaultExternalTimeout), 10*time.Second)
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string   { _ = Load(); return get("STORAGE_DISK", "local") }
func StorageLocalRoot() string { _ = Load(); return get("STORAGE_LOCAL_ROOT", "storage") }
func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:"+AppPort()+"/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil && !os.IsNotExist(err) {
		return err
	}

	env, err := godotenv.Read(envPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", envPath, err)
	}
	for k, v := range env {
		if key := strings.ToUpper(strings.TrimSpace(k)); key != "" {
			loaded[key] = strings.TrimSpace(v)
		}
	}

	mu.Lock()
	for k, v := range loaded {
		if _, overridden := values[k]; overridden && isExplicit(k) {
			continue
		}
		values[k] = v
	}
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case float64, bool:
			out[k] = fmt.Sprint(v)
		}
	}

	return nil
}

var (
	explicitMu sync.Mutex
	explicit   = map[string]bool{}
)

func isExplicit(key string) bool {
	explicitMu.Lock()
	defer explicitMu.Unlock()
	return explicit[key]
}

// Set overrides a key for the lifetime of the process. Values set here are
// not replaced by a later Load.
func Set(key, value string) {
	key = strings.ToUpper(key)
	explicitMu.Lock()
	explicit[key] = true
	explicitMu.Unlock()

	mu.Lock()
	values[key] = value
	mu.Unlock()
}

func get(key, fallback string) string {
	if !isExplicit(key) {
		if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
			return strings.TrimSpace(env)
		}
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(raw, "d")); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(strings.ToUpper(key), fallback)
}
