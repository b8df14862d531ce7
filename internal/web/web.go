package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"arcsched/internal/alert"
	"arcsched/internal/config"
	"arcsched/internal/i18n"
	appLog "arcsched/internal/log"
	"arcsched/internal/metrics"
	"arcsched/internal/model"
	"arcsched/internal/prefs"
	"arcsched/internal/presence"
	"arcsched/internal/schedule"
)

// embeddedStatic contains the single-page schedule UI.
//
//go:embed all:static
var embeddedStatic embed.FS

// Options wires the server's collaborators. Table defaults to
// schedule.Default; AccessLog defaults to stderr.
type Options struct {
	Config    *config.Config
	Prefs     *prefs.Store
	Presence  *presence.Tracker
	Runner    *alert.Runner
	Feed      *alert.Feed
	Metrics   *metrics.Metrics
	Table     schedule.Table
	AccessLog io.Writer
}

// Server provides the HTTP API and the embedded UI.
type Server struct {
	cfg      *config.Config
	prefs    *prefs.Store
	presence *presence.Tracker
	runner   *alert.Runner
	feed     *alert.Feed
	metrics  *metrics.Metrics
	table    schedule.Table
	loc      *time.Location
	now      func() time.Time

	// testLimiter throttles forced test notifications.
	testLimiter *rate.Limiter

	router    *mux.Router
	accessLog io.Writer
}

// NewServer constructs a Server and registers its routes.
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:       cfg,
		prefs:     opts.Prefs,
		presence:  opts.Presence,
		runner:    opts.Runner,
		feed:      opts.Feed,
		metrics:   opts.Metrics,
		table:     opts.Table,
		loc:       cfg.Location(),
		now:       time.Now,
		router:    mux.NewRouter(),
		accessLog: opts.AccessLog,
	}
	if s.table == nil {
		s.table = schedule.Default
	}
	if s.presence == nil {
		s.presence = presence.NewTracker()
	}
	if s.accessLog == nil {
		s.accessLog = os.Stderr
	}
	perMinute := cfg.TestAlertRate
	if perMinute <= 0 {
		perMinute = config.DefaultTestAlertRate
	}
	s.testLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	s.registerRoutes()
	return s
}

// Handler returns the root handler: routes wrapped with panic recovery,
// access logging and, when configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(s.accessLog, h)
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	s.handle("/health", s.handleHealth, http.MethodGet)
	s.handle("/api/schedule", s.handleSchedule, http.MethodGet)
	s.handle("/api/status", s.handleStatus, http.MethodGet)
	s.handle("/api/preferences", s.handleGetPreferences, http.MethodGet)
	s.handle("/api/preferences", s.handlePutPreferences, http.MethodPut)
	s.handle("/api/preferences/events/{event}/toggle", s.handleToggleEvent, http.MethodPost)
	s.handle("/api/preferences/locations/{location}/toggle", s.handleToggleLocation, http.MethodPost)
	s.handle("/api/preferences/notifications", s.handleSetNotifications, http.MethodPut)
	s.handle("/api/rules", s.handleListRules, http.MethodGet)
	s.handle("/api/rules", s.handleAddRule, http.MethodPost)
	s.handle("/api/rules/{id}", s.handleRemoveRule, http.MethodDelete)
	s.handle("/api/presence", s.handlePresence, http.MethodPost)
	s.handle("/api/notifications", s.handleFeed, http.MethodGet)
	s.handle("/api/notifications/test", s.handleTestNotification, http.MethodPost)
	s.handle("/calendar.ics", s.handleCalendar, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Unknown /api/* paths must not fall through to the UI.
	r.PathPrefix("/api/").Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
	r.PathPrefix("/").Handler(s.metrics.WrapHandler("/", s.staticFileServer()))
}

// handle registers fn under route with request metrics labelled by the
// route template.
func (s *Server) handle(route string, fn http.HandlerFunc, method string) {
	s.router.Handle(route, s.metrics.WrapHandler(route, fn)).Methods(method)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="arcsched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// staticFileServer serves the embedded UI from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// viewer resolves the request's timezone (?tz=) and language (?lang=, then
// Accept-Language, then config) and captures one Instant for the request.
type viewer struct {
	loc *time.Location
	tr  *i18n.Translator
	now model.Instant
}

func (s *Server) viewer(r *http.Request) viewer {
	loc := s.loc
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc = resolveLocationOr(tz, s.loc)
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	if lang == "" {
		lang = s.cfg.Language
	}
	return viewer{
		loc: loc,
		tr:  i18n.New(lang),
		now: model.Capture(s.now(), loc),
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOr(name string, fallback *time.Location) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Debug("unknown timezone; using default", "name", name, "err", err)
		return fallback
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// decodeBody reads a small JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
