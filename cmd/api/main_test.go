package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "github.com/wolfman30/homewellness-booking/internal/config"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

func TestNewServerServesHealth(t *testing.T) {
	t.Setenv("PORT", "9099")
	t.Setenv("BOOKING_TIMEZONE", "UTC")
	t.Setenv("MINDBODY_TIMEOUT", "2s")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MINDBODY_API_KEY", "")
	cfg := appconfig.Load()

	srv, rt := newServer(context.Background(), cfg, logging.NewWithWriter("error", &bytes.Buffer{}))
	defer rt.Close()

	if srv.Addr != ":9099" {
		t.Fatalf("expected addr :9099, got %q", srv.Addr)
	}
	if srv.WriteTimeout != 17*time.Second {
		t.Fatalf("expected write timeout to outlast provider timeout, got %s", srv.WriteTimeout)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
