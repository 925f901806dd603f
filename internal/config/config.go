package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCategories are the business categories offered for online booking.
var DefaultCategories = []string{
	"Acupuncture & Eastern Med",
	"Energy & Healing Therapies",
	"Face & Skin Treatments",
	"Fertility, Pre & Postnatal",
	"Massage & Bodywork",
	"Mind & Emotional Health",
	"Natural Medicine/ Nutrition",
	"Osteopathy & Physiotherapy",
}

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Mindbody Public API
	MindbodyBaseURL        string
	MindbodyAPIKey         string
	MindbodySiteID         string
	MindbodySourceName     string
	MindbodyTimeout        time.Duration
	MindbodyRetryAttempts  int
	MindbodyRetryBaseDelay time.Duration

	// Booking flow
	BookingCategories       []string
	BookingDaysToShow       int
	BookingTimezone         string
	BookingDefaultLocation  string
	BookingRevalidateWindow time.Duration
	BookingSKUPrefix        string

	// Commerce cart store
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CartLineTTL   time.Duration

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MindbodyBaseURL:        strings.TrimRight(getEnv("MINDBODY_BASE_URL", "https://api.mindbodyonline.com/public/v6"), "/"),
		MindbodyAPIKey:         strings.TrimSpace(getEnv("MINDBODY_API_KEY", "")),
		MindbodySiteID:         strings.TrimSpace(getEnv("MINDBODY_SITE_ID", "")),
		MindbodySourceName:     getEnv("MINDBODY_SOURCE_NAME", ""),
		MindbodyTimeout:        getEnvAsDuration("MINDBODY_TIMEOUT", 30*time.Second),
		MindbodyRetryAttempts:  getEnvAsInt("MINDBODY_RETRY_ATTEMPTS", 3),
		MindbodyRetryBaseDelay: getEnvAsDuration("MINDBODY_RETRY_BASE_DELAY", 250*time.Millisecond),

		BookingCategories:       getEnvAsList("BOOKING_CATEGORIES", "|", DefaultCategories),
		BookingDaysToShow:       getEnvAsInt("BOOKING_DAYS_TO_SHOW", 7),
		BookingTimezone:         getEnv("BOOKING_TIMEZONE", "Europe/London"),
		BookingDefaultLocation:  getEnv("BOOKING_DEFAULT_LOCATION", "Primrose Hill"),
		BookingRevalidateWindow: getEnvAsDuration("BOOKING_REVALIDATE_WINDOW", time.Hour),
		BookingSKUPrefix:        getEnv("BOOKING_SKU_PREFIX", "mb-"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		CartLineTTL:   getEnvAsDuration("CART_LINE_TTL", 24*time.Hour),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", ",", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// MindbodyConfigured reports whether provider credentials are present.
func (c *Config) MindbodyConfigured() bool {
	return c.MindbodyAPIKey != "" && c.MindbodySiteID != ""
}

// Location resolves BookingTimezone, falling back to UTC when unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a variable on sep, dropping blanks. Category labels
// carry commas, so callers choose the separator.
func getEnvAsList(key, sep string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
