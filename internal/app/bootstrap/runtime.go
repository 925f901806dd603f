package bootstrap

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/homewellness-booking/internal/admission"
	"github.com/wolfman30/homewellness-booking/internal/api/router"
	"github.com/wolfman30/homewellness-booking/internal/availability"
	"github.com/wolfman30/homewellness-booking/internal/booking"
	"github.com/wolfman30/homewellness-booking/internal/catalog"
	"github.com/wolfman30/homewellness-booking/internal/commerce"
	appconfig "github.com/wolfman30/homewellness-booking/internal/config"
	"github.com/wolfman30/homewellness-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/homewellness-booking/internal/http/middleware"
	"github.com/wolfman30/homewellness-booking/internal/mindbody"
	"github.com/wolfman30/homewellness-booking/internal/observability/metrics"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

// BuildRedisClient wires the optional shared redis client.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCart picks the redis cart store when a client is available and the
// in-process store otherwise.
func BuildCart(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) commerce.Cart {
	if client == nil {
		if logger != nil {
			logger.Warn("REDIS_ADDR not set; cart lines are kept in memory and lost on restart")
		}
		return commerce.NewMemoryStore()
	}
	var ttl time.Duration
	if cfg != nil {
		ttl = cfg.CartLineTTL
	}
	return commerce.NewRedisStore(client, ttl)
}

// BuildProvider wires the Mindbody client behind the GET retry decorator.
func BuildProvider(cfg *appconfig.Config, logger *logging.Logger, observer *metrics.BookingMetrics, opts ...mindbody.Option) booking.Provider {
	if observer != nil {
		opts = append(opts, mindbody.WithMetrics(observer))
	}
	client := mindbody.NewClient(mindbody.Config{
		BaseURL:    cfg.MindbodyBaseURL,
		APIKey:     cfg.MindbodyAPIKey,
		SiteID:     cfg.MindbodySiteID,
		SourceName: cfg.MindbodySourceName,
		Timeout:    cfg.MindbodyTimeout,
		Location:   cfg.Location(),
	}, logger, opts...)
	if !client.Configured() {
		logger.Warn("mindbody credentials missing; booking endpoints will report not configured")
	}
	return mindbody.NewRetrying(client, logger).
		WithMaxAttempts(cfg.MindbodyRetryAttempts).
		WithBaseDelay(cfg.MindbodyRetryBaseDelay)
}

// Runtime is the assembled API process.
type Runtime struct {
	Handler     http.Handler
	Provider    booking.Provider
	Cart        commerce.Cart
	Guard       *admission.Guard
	Fetcher     *availability.Fetcher
	rateLimiter *httpmiddleware.RateLimiter
	redis       *redis.Client
}

// Close releases background resources.
func (r *Runtime) Close() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// BuildRuntime wires the booking core and its HTTP surface. A nil registry
// uses a fresh one.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry, opts ...mindbody.Option) *Runtime {
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	bm := metrics.NewBookingMetrics(reg)
	loc := cfg.Location()

	provider := BuildProvider(cfg, logger, bm, opts...)
	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	cart := BuildCart(redisClient, cfg, logger)

	normalizer := catalog.NewNormalizer(cfg.BookingCategories)
	loader := catalog.NewLoader(provider, normalizer, logger)
	fetcher := availability.NewFetcher(
		provider,
		loader,
		availability.NewGrouper(cfg.BookingDefaultLocation),
		loc,
		cfg.BookingDaysToShow,
		logger,
		availability.WithFetchMetrics(bm),
	)
	guard := admission.NewGuard(provider, cart, logger).
		WithWindow(cfg.BookingRevalidateWindow).
		WithSKUPrefix(cfg.BookingSKUPrefix).
		WithDefaultLocation(cfg.BookingDefaultLocation).
		WithMetrics(bm)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := router.New(&router.Config{
		Logger: logger,
		Booking: handlers.NewBookingHandler(handlers.BookingHandlerConfig{
			Catalog:      loader,
			Roster:       catalog.NewRosterService(provider, normalizer),
			Availability: fetcher,
			Guard:        guard,
			Logger:       logger,
		}),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		RequestTimeout:     cfg.MindbodyTimeout + 5*time.Second,
	})

	return &Runtime{
		Handler:     handler,
		Provider:    provider,
		Cart:        cart,
		Guard:       guard,
		Fetcher:     fetcher,
		rateLimiter: limiter,
		redis:       redisClient,
	}
}
