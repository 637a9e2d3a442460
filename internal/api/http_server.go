package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"aforo/internal/config"
	"aforo/internal/domain"
	"aforo/internal/metrics"
	"aforo/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	apiPrefix          = "/api/v1/"
	defaultMaxUploadMB = 10
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the services the HTTP API exposes.
type Deps struct {
	Import      *service.ImportService
	Occupancy   *service.OccupancyService
	Manual      *service.ManualReservationService
	Restaurant  *service.RestaurantService
	Pool        domain.PoolStore
	Live        http.Handler
	DB          Pinger
	MaxUploadMB int
}

// HTTPServer exposes the JSON API, the export download and the live feed.
type HTTPServer struct {
	cfg    *config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	log    zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "http").Logger()
	}
	if deps.MaxUploadMB <= 0 {
		deps.MaxUploadMB = defaultMaxUploadMB
	}

	srv := &HTTPServer{cfg: cfg, deps: deps, log: log}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.loggingMiddleware(corsMiddleware(srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", "healthz", s.handleHealthz)
	s.handle(mux, "GET /readyz", "readyz", s.handleReadyz)

	s.handle(mux, "POST /api/v1/pool/import", "pool_import", s.handlePoolImport)
	s.handle(mux, "GET /api/v1/pool/reservations", "pool_reservations", s.handlePoolReservations)
	s.handle(mux, "GET /api/v1/pool/stats", "pool_stats", s.handlePoolStats)
	s.handle(mux, "GET /api/v1/pool/last-upload", "pool_last_upload", s.handlePoolLastUpload)
	s.handle(mux, "GET /api/v1/occupancy", "occupancy", s.handleOccupancy)

	s.handle(mux, "GET /api/v1/manual", "manual_list", s.handleManualList)
	s.handle(mux, "POST /api/v1/manual", "manual_create", s.handleManualCreate)
	s.handle(mux, "GET /api/v1/manual/{id}", "manual_get", s.handleManualGet)
	s.handle(mux, "GET /api/v1/manual/{id}/audit", "manual_audit", s.handleManualAudit)
	s.handle(mux, "PUT /api/v1/manual/{id}", "manual_update", s.handleManualUpdate)
	s.handle(mux, "DELETE /api/v1/manual/{id}", "manual_delete", s.handleManualDelete)

	s.handle(mux, "GET /api/v1/restaurant", "restaurant_list", s.handleRestaurantList)
	s.handle(mux, "POST /api/v1/restaurant", "restaurant_create", s.handleRestaurantCreate)
	s.handle(mux, "GET /api/v1/restaurant/day", "restaurant_day", s.handleRestaurantDay)
	s.handle(mux, "PUT /api/v1/restaurant/{id}", "restaurant_update", s.handleRestaurantUpdate)
	s.handle(mux, "DELETE /api/v1/restaurant/{id}", "restaurant_delete", s.handleRestaurantDelete)

	s.handle(mux, "GET /api/v1/export/{date}", "export", s.handleExport)
	if s.deps.Live != nil {
		s.handle(mux, "GET /api/v1/ws", "ws", s.deps.Live.ServeHTTP)
	}
}

func (s *HTTPServer) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(endpoint)
		h(w, r)
	})
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HTTPAuth provides API-key auth and per-key rate limiting for /api/v1.
type HTTPAuth struct {
	cfg     *config.APIConfig
	clients *clientRegistry
	limiter *rateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		clients: newClientRegistry(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || !strings.HasPrefix(r.URL.Path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			apiKey, extra := a.credentials(r)
			client, err := a.clients.authenticate(apiKey, extra, requiredPermissionHTTP(r))
			if err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
			r = r.WithContext(withClient(r.Context(), client))
		}

		if !a.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// credentials reads the key pair from headers. Browsers cannot set headers on
// a websocket handshake, so /ws also accepts them as query parameters.
func (a *HTTPAuth) credentials(r *http.Request) (apiKey, extra string) {
	apiKey = strings.TrimSpace(r.Header.Get(a.clients.keyHeader))
	extra = strings.TrimSpace(r.Header.Get(a.clients.extraHeader))
	if apiKey == "" && r.URL.Path == apiPrefix+"ws" {
		q := r.URL.Query()
		apiKey = strings.TrimSpace(q.Get("api_key"))
		extra = strings.TrimSpace(q.Get("api_extra"))
	}
	return apiKey, extra
}

func requiredPermissionHTTP(r *http.Request) string {
	switch {
	case r.URL.Path == apiPrefix+"pool/import":
		return permImport
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		return permRead
	default:
		return permWrite
	}
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey, _ := a.credentials(r); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// actorOf names who made a change: an explicit X-Actor header, then the
// authenticated client, then "api".
func actorOf(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		return actor
	}
	if client, ok := ClientFromContext(r.Context()); ok && client.Name != "" {
		return client.Name
	}
	return "api"
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-API-Extra, X-Actor, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
