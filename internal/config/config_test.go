package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "MINDBODY_API_KEY", "MINDBODY_SITE_ID", "BOOKING_CATEGORIES", "BOOKING_DAYS_TO_SHOW", "REDIS_ADDR", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.MindbodyBaseURL != "https://api.mindbodyonline.com/public/v6" {
		t.Fatalf("unexpected base url %s", cfg.MindbodyBaseURL)
	}
	if cfg.MindbodyConfigured() {
		t.Fatalf("expected mindbody unconfigured without credentials")
	}
	if cfg.MindbodyTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.MindbodyTimeout)
	}
	if len(cfg.BookingCategories) != 8 || cfg.BookingCategories[3] != "Fertility, Pre & Postnatal" {
		t.Fatalf("unexpected default categories %v", cfg.BookingCategories)
	}
	if cfg.BookingDaysToShow != 7 {
		t.Fatalf("expected 7 days, got %d", cfg.BookingDaysToShow)
	}
	if cfg.BookingDefaultLocation != "Primrose Hill" {
		t.Fatalf("unexpected default location %s", cfg.BookingDefaultLocation)
	}
	if cfg.BookingSKUPrefix != "mb-" {
		t.Fatalf("unexpected sku prefix %s", cfg.BookingSKUPrefix)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected empty redis addr, got %s", cfg.RedisAddr)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MINDBODY_BASE_URL", "http://localhost:9999/v6/")
	t.Setenv("MINDBODY_API_KEY", " key ")
	t.Setenv("MINDBODY_SITE_ID", "-99")
	t.Setenv("MINDBODY_RETRY_ATTEMPTS", "1")
	t.Setenv("BOOKING_CATEGORIES", "Massage & Bodywork| Fertility, Pre & Postnatal |")
	t.Setenv("BOOKING_DAYS_TO_SHOW", "14")
	t.Setenv("BOOKING_REVALIDATE_WINDOW", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.MindbodyBaseURL != "http://localhost:9999/v6" {
		t.Fatalf("expected trimmed base url, got %s", cfg.MindbodyBaseURL)
	}
	if !cfg.MindbodyConfigured() {
		t.Fatalf("expected mindbody configured")
	}
	if cfg.MindbodyAPIKey != "key" {
		t.Fatalf("expected trimmed api key, got %q", cfg.MindbodyAPIKey)
	}
	if cfg.MindbodyRetryAttempts != 1 {
		t.Fatalf("expected retry override, got %d", cfg.MindbodyRetryAttempts)
	}
	if len(cfg.BookingCategories) != 2 || cfg.BookingCategories[1] != "Fertility, Pre & Postnatal" {
		t.Fatalf("unexpected categories %v", cfg.BookingCategories)
	}
	if cfg.BookingDaysToShow != 14 {
		t.Fatalf("expected days override, got %d", cfg.BookingDaysToShow)
	}
	if cfg.BookingRevalidateWindow != 30*time.Minute {
		t.Fatalf("expected window override, got %s", cfg.BookingRevalidateWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{BookingTimezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
	cfg.BookingTimezone = "Europe/London"
	if cfg.Location().String() != "Europe/London" {
		t.Fatalf("expected Europe/London, got %s", cfg.Location())
	}
}
