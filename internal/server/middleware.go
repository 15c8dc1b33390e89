package server

import (
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"leadcrm/internal/metrics"
	apperrors "leadcrm/pkg/errors"
)

// exposedHeaders are readable by browser clients. The export download reports
// its file name and row count through these.
const exposedHeaders = "Content-Type, Content-Disposition, X-Total-Count, X-Request-ID"

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Server", ""},
}

// Root returns the complete HTTP stack: security headers, then CORS, then
// request logging and Prometheus instrumentation around the routes.
func (s *Server) Root() http.Handler {
	h := metrics.PrometheusMiddleware(s.Handler())
	h = logRequests(h)
	h = s.cors(h)
	return s.secure(h)
}

func (s *Server) secure(next http.Handler) http.Handler {
	hsts := !s.cfg.App.Debug
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range securityHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		if hsts && r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and rejects origins outside
// CORS.AllowedOrigins. A "*" entry or debug mode allows every origin.
func (s *Server) cors(next http.Handler) http.Handler {
	c := s.cfg.CORS
	debug := s.cfg.App.Debug
	restricted := !debug && len(c.AllowedOrigins) > 0 && !slices.Contains(c.AllowedOrigins, "*")
	methods := strings.Join(c.AllowedMethods, ", ")
	headers := strings.Join(c.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(c.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if restricted && origin != "" && !slices.Contains(c.AllowedOrigins, origin) {
			log.Printf("[CORS] Rejected origin %s for %s %s", origin, r.Method, r.URL.Path)
			writeError(w, r, apperrors.New(apperrors.ErrCodeForbidden, "Origin not allowed"))
			return
		}

		h := w.Header()
		switch {
		case origin != "":
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		case debug:
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Expose-Headers", exposedHeaders)
		h.Set("Access-Control-Max-Age", maxAge)
		h.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder keeps the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// logRequests logs every request and its outcome. Health and metrics
// scrapes are not logged.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		log.Printf("[REQUEST] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		next.ServeHTTP(rec, r)

		outcome := "OK"
		if rec.status >= http.StatusBadRequest {
			outcome = "ERROR"
		}
		log.Printf("[RESPONSE] %s %s -> %d %s (%v)", r.Method, r.URL.Path, rec.status, outcome, time.Since(start))
	})
}
