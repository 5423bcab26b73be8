package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string
	AllowedOrigins     []string

	// Browser bridge
	CDPURL      string
	InjectDelay time.Duration

	// Entitlement
	LicenseURL     string
	CheckoutURL    string
	KeyringService string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:collections.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/sidebar"),
		AllowedEmails:      getList("ALLOWED_EMAILS"),
		AllowedOrigins:     getList("ALLOWED_ORIGINS"),
		CDPURL:             getEnv("CDP_URL", ""),
		InjectDelay:        getDuration("INJECT_DELAY", 100*time.Millisecond),
		LicenseURL:         getEnv("LICENSE_URL", "https://www.googleapis.com/chromewebstore/v1.1/userlicenses/comet-collections"),
		CheckoutURL:        getEnv("CHECKOUT_URL", "https://chromewebstore.google.com/detail/comet-collections"),
		KeyringService:     getEnv("KEYRING_SERVICE", "comet-collections"),
	}
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getList splits a comma separated variable, dropping blanks.
func getList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
