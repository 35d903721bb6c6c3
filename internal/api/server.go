// Package api serves the community features over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/conversation"
	"github.com/notepid/lexcircle/internal/group"
	"github.com/notepid/lexcircle/internal/message"
	"github.com/notepid/lexcircle/internal/post"
	"github.com/notepid/lexcircle/internal/redaction"
)

// Deps are the stores and services the API is built on.
type Deps struct {
	Accounts     *account.Repo
	Groups       *group.Repo
	Messages     *message.Repo
	Posts        *post.Repo
	Conversation *conversation.Controller
	Jobs         *redaction.JobRepo
	// Registry receives HTTP metrics and is served at /metrics.
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Server routes HTTP requests to the stores.
type Server struct {
	accounts *account.Repo
	groups   *group.Repo
	messages *message.Repo
	posts    *post.Repo
	conv     *conversation.Controller
	jobs     *redaction.JobRepo
	logger   *zap.Logger
	requests *prometheus.CounterVec
	router   *mux.Router
}

// New builds the HTTP handler tree.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		accounts: d.Accounts,
		groups:   d.Groups,
		messages: d.Messages,
		posts:    d.Posts,
		conv:     d.Conversation,
		jobs:     d.Jobs,
		logger:   d.Logger.Named("api"),
		requests: promauto.With(d.Registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexcircle",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.register).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.identify)
	s.registerGroups(authed)
	s.registerAccounts(authed)
	s.registerPosts(authed)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe runs an HTTP server on addr until ctx is cancelled, then
// shuts it down within shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, h http.Handler,
	readHeaderTimeout, shutdownTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
