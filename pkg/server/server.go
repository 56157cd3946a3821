package server

import (
	"context"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/backoffice/pkg/auth"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/middleware"
	"github.com/vango-dev/backoffice/pkg/nav"
	"github.com/vango-dev/backoffice/pkg/router"
	"github.com/vango-dev/backoffice/pkg/upload"
)

// Pages is the application served: its route tables, its views and its
// form handling.
type Pages interface {
	// Table returns the route table for lang.
	Table(lang string) *router.Table

	// Bundle returns the localization bundle.
	Bundle() *i18n.Bundle

	// Content renders a view's content for a live region.
	Content(lang string, v nav.View) (template.HTML, error)

	// Page renders a view inside the application shell.
	Page(ctx context.Context, w io.Writer, lang string, v nav.View) error

	// Notice renders an acknowledgement page leading to next.
	Notice(ctx context.Context, w io.Writer, lang string, n boundary.Notice, next string) error

	// Error renders the reload page for path.
	Error(ctx context.Context, w io.Writer, lang, path string) error

	// Submit saves a record form and returns the location to show next.
	Submit(ctx context.Context, kind string, id int64, form url.Values) (string, error)
}

// Server is the HTTP/WebSocket server of the back office.
type Server struct {
	config   *ServerConfig
	pages    Pages
	sessions *SessionManager
	upgrader websocket.Upgrader
	trusted  *trustedProxies

	navMiddleware []nav.Middleware
	metrics       *middleware.Metrics
	gatherer      prometheus.Gatherer

	uploads      upload.Store
	uploadConfig *upload.Config
	static       fs.FS
	fallback     auth.Principal

	mu         sync.Mutex
	httpServer *http.Server
	stopped    bool

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records navigation and session metrics in m and serves
// gatherer at /metrics.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
		s.navMiddleware = append(s.navMiddleware, m.Middleware())
	}
}

// WithNavigationMiddleware adds middleware to every region's navigations.
func WithNavigationMiddleware(mw ...nav.Middleware) Option {
	return func(s *Server) {
		s.navMiddleware = append(s.navMiddleware, mw...)
	}
}

// WithUploads enables the attachment endpoints.
func WithUploads(store upload.Store, config *upload.Config) Option {
	return func(s *Server) {
		s.uploads = store
		s.uploadConfig = config
	}
}

// WithStatic serves fsys under /static/.
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) {
		s.static = fsys
	}
}

// WithDefaultPrincipal sets the principal used for requests that carry
// none. The zero principal rejects such requests.
func WithDefaultPrincipal(p auth.Principal) Option {
	return func(s *Server) {
		s.fallback = p
	}
}

// New creates a Server for pages. A nil config uses DefaultServerConfig.
func New(pages Pages, config *ServerConfig, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		config: config,
		pages:  pages,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.trusted = newTrustedProxies(config.TrustedProxies, s.logger)
	s.sessions = NewSessionManager(config.MaxSessions, config.MaxSessionsPerIP, s.metrics, s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	return s
}

// Sessions returns the live session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.static != nil {
		files := http.StripPrefix("/static/", http.FileServer(noListFS{http.FS(s.static)}))
		r.Handle("/static/*", staticCacheHeaders(files))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.fallback, s.logger))

		if s.uploads != nil {
			r.Post("/api/attachments", upload.Handler(s.uploads, s.uploadConfig).ServeHTTP)
			r.Get("/api/attachments/{id}", upload.DownloadHandler(s.uploads, func(r *http.Request) string {
				return chi.URLParam(r, "id")
			}).ServeHTTP)
		}

		r.Get("/ws", s.handleWebSocket)
		r.Post("/records/{kind}", s.handleSave)
		r.Post("/records/{kind}/{id}", s.handleSave)
		r.Get("/*", s.handleRender)
	})

	return r
}

// handleWebSocket upgrades the request and starts a live session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := s.clientIP(r)
	if err := s.sessions.Admit(ip); err != nil {
		s.logger.Warn("session rejected", "ip", ip, "error", err)
		http.Error(w, "Too many sessions", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.RecordWebSocketError("upgrade")
		return
	}

	// The request context ends with this handler; the session keeps its values.
	ctx := context.WithoutCancel(r.Context())
	sess := s.newSession(ctx, conn, s.language(r), ip)
	if err := s.sessions.Add(sess); err != nil {
		s.logger.Warn("session rejected", "ip", ip, "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		sess.Close()
		return
	}

	go sess.WriteLoop()
	go sess.ReadLoop()
}

// ListenAndServe serves until Shutdown is called. It returns nil at once
// when Shutdown already ran.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	hs := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.httpServer = hs
	s.mu.Unlock()

	s.logger.Info("server starting", "address", s.config.Address)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every live session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	hs := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server shutting down", "sessions", s.sessions.Count())
	s.sessions.CloseAll()
	if hs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return hs.Shutdown(ctx)
}

// =============================================================================
// HTTP helpers
// =============================================================================

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()))
		})
	}
}

// noListFS wraps http.FileSystem to disable directory listing.
type noListFS struct{ http.FileSystem }

func (fs noListFS) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// staticCacheHeaders lets browsers keep client assets for a day.
func staticCacheHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}
