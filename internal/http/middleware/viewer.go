package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ViewerHeader lets the widget pin a stable viewer key across requests.
const ViewerHeader = "X-Viewer-Id"

type viewerKeyCtx struct{}

// Viewer resolves the viewer key from X-Viewer-Id, falling back to the
// client IP. Availability fetches keyed by the same viewer supersede each
// other.
func Viewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(ViewerHeader))
		if len(key) > 128 {
			key = key[:128]
		}
		if key == "" {
			key = clientIP(r)
		}
		next.ServeHTTP(w, r.WithContext(WithViewerKey(r.Context(), key)))
	})
}

func WithViewerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, viewerKeyCtx{}, key)
}

// ViewerKey returns the viewer key stored by Viewer, or "".
func ViewerKey(ctx context.Context) string {
	key, _ := ctx.Value(viewerKeyCtx{}).(string)
	return key
}

// clientIP prefers X-Real-Ip as set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
