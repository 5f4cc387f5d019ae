package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	AuditTopic     string
	IdentityURL    string
	IdentityAPIKey string
	SigningKey     string
	FrontendOrigin string
	TokenCacheTTL  time.Duration
	TokenCacheMax  int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("PULSE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	signingKey := os.Getenv("PULSE_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	frontendOrigin := os.Getenv("PULSE_FRONTEND_ORIGIN")
	if frontendOrigin == "" {
		frontendOrigin = "http://localhost:5173"
	}

	ttl := 300 * time.Second
	if v := os.Getenv("PULSE_TOKEN_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	cacheMax := 500
	if v := os.Getenv("PULSE_TOKEN_CACHE_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cacheMax = parsed
		}
	}

	auditTopic := os.Getenv("PULSE_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "pulse.feature-events"
	}

	var brokers []string
	if v := os.Getenv("PULSE_KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("PULSE_DATABASE_URL"),
		RedisURL:       os.Getenv("PULSE_REDIS_URL"),
		KafkaBrokers:   brokers,
		AuditTopic:     auditTopic,
		IdentityURL:    os.Getenv("PULSE_IDENTITY_URL"),
		IdentityAPIKey: os.Getenv("PULSE_IDENTITY_API_KEY"),
		SigningKey:     signingKey,
		FrontendOrigin: frontendOrigin,
		TokenCacheTTL:  ttl,
		TokenCacheMax:  cacheMax,
	}
}
