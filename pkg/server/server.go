package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/filestage"
	"github.com/vango-dev/filestage/pkg/middleware"
	"github.com/vango-dev/filestage/pkg/preview"
	"github.com/vango-dev/filestage/pkg/stage"
	"github.com/vango-dev/filestage/pkg/toast"
)

// Server hosts staging sessions over HTTP and websockets.
type Server struct {
	config   *Config
	sessions *sessionManager
	router   chi.Router
	upgrader websocket.Upgrader
	metrics  *middleware.Metrics
	logger   *slog.Logger
}

// New creates a Server. The session janitor starts immediately; call
// Shutdown to stop it.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	if config.Allocator == nil {
		alloc := preview.NewMemoryAllocator(config.PreviewPrefix)
		config.Allocator = alloc
		config.PreviewHandler = alloc.Handler()
	}

	logger := config.Logger.With("component", "server")

	s := &Server{
		config:  config,
		metrics: config.HTTPMetrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.sessions = newSessionManager(config.SessionTTL, config.CleanupInterval, logger, config.HTTPMetrics)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Tracing())
	r.Use(middleware.Prometheus(s.metrics))
	r.Use(middleware.Logging(s.config.Logger))
	r.Use(chimw.Recoverer)

	r.Route("/sessions", func(r chi.Router) {
		r.With(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: s.config.SessionsPerMinute,
			Burst:             s.config.SessionBurst,
		})).Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleState)
			r.Delete("/", s.handleDelete)
			r.Post("/pick", s.handlePick)
			r.Post("/drag", s.handleDrag)
			r.Post("/drop", s.handleDrop)
			r.Post("/clear", s.handleClear)
			r.Delete("/entries/{entry}", s.handleRemove)
			r.Get("/feed", s.handleFeed)
		})
	})

	if s.config.PreviewHandler != nil {
		prefix := "/" + strings.Trim(s.config.PreviewPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, s.config.PreviewHandler))
	}

	if s.config.MetricsPath != "" && s.config.Gatherer != nil {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.count()})
	})

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	return s.sessions.count()
}

// Session returns the session with id.
func (s *Server) Session(id string) (*Session, bool) {
	return s.sessions.get(id)
}

// newSession creates a session whose stager publishes to its feed.
func (s *Server) newSession(r *http.Request) (*Session, error) {
	return s.sessions.create(func(id string, f *feed) (*filestage.Stager, error) {
		return filestage.New(r.Context(), filestage.Options{
			AllowMultiple:  s.config.Policy.AllowMultiple,
			MaxSizeBytes:   s.config.Policy.MaxSizeBytes,
			AcceptPatterns: s.config.Policy.AcceptPatterns,
			Allocator:      s.config.Allocator,
			Metrics:        s.config.StageMetrics,
			Logger:         s.config.Logger.With("session", id),
			OnChange: func(v stage.Value) {
				f.Emit(EventChange, v)
			},
			OnError: func(msg string) {
				f.Emit(EventError, map[string]string{"message": msg})
				toast.ForError(f, msg)
			},
			OnBatch: func(res filestage.Result) {
				batchToast(f, res)
			},
		})
	})
}

// batchToast tells the user about a batch that went through. Rejections
// already surface as error toasts.
func batchToast(e toast.Emitter, res filestage.Result) {
	switch {
	case res.Discarded() > 0:
		toast.Info(e, fmt.Sprintf("Only %q was kept; one file can be staged at a time", res.Added[0].File.Name))
	case len(res.Added) > 0 && !res.Verdict.Rejected():
		toast.Success(e, english.Plural(len(res.Added), "file", "")+" staged")
	}
}

// ListenAndServe serves on Config.Address until ctx is cancelled, then
// shuts down gracefully. Every session is closed before it returns.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", "address", s.config.Address)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		s.Shutdown(shutdownCtx)
		return err
	})

	return g.Wait()
}

// Shutdown stops the janitor and closes every session, releasing all
// previews.
func (s *Server) Shutdown(ctx context.Context) {
	s.sessions.shutdown(ctx)
	s.logger.Info("server stopped")
}
