package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/aatumaykin/morningbrew/internal/logger"
)

// requestLogger logs one line per request after it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.InfoCtx(r.Context(), "http request",
			logger.Field{Key: "request_id", Value: middleware.GetReqID(r.Context())},
			logger.Field{Key: "method", Value: r.Method},
			logger.Field{Key: "path", Value: r.URL.Path},
			logger.Field{Key: "status", Value: ww.Status()},
			logger.Field{Key: "bytes", Value: ww.BytesWritten()},
			logger.Field{Key: "client", Value: clientIP(r)},
			logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	})
}

// cors allows the configured client origin. Preflight requests end here.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.config.CORSOrigin
		if origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Expose-Headers", "Retry-After, RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the rate limit key. With TrustProxy set, middleware.RealIP has
// already replaced RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
