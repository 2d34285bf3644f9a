// Package api is the REST surface: auth, transcript fetching and the notebook.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_edunote/internal/auth"
	"github.com/anatolykoptev/go_edunote/internal/engine/notes"
	"github.com/anatolykoptev/go_edunote/internal/notebook"
	"github.com/anatolykoptev/go_edunote/internal/store"
)

// Config holds HTTP settings.
type Config struct {
	Addr           string
	FrontendURL    string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 1
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	return c
}

// Generator is the note generation the API needs. *notes.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, transcript, title string) (*notes.Notes, error)
}

// Deps are the services behind the handlers.
type Deps struct {
	Auth      *auth.Service
	Notebook  *notebook.Service
	Generator Generator
	Store     store.Store
	// Metrics renders the text metrics page; nil disables /metrics.
	Metrics func() string
}

// Server is the REST API.
type Server struct {
	cfg      Config
	deps     Deps
	validate *validator.Validate
	limiter  *clientLimiter
	handler  http.Handler
}

// New builds the router and middleware chain.
func New(cfg Config, deps Deps) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		validate: newValidator(),
		limiter:  newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Route not found"})
	})
	r.MethodNotAllowedHandler = r.NotFoundHandler

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	}

	a := r.PathPrefix("/api/auth").Subrouter()
	a.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	a.Handle("/me", s.requireAuth(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	t := r.PathPrefix("/api/transcript").Subrouter()
	t.Use(s.requireAuth)
	t.Handle("/fetch", s.rateLimit(http.HandlerFunc(s.handleFetchTranscript))).Methods(http.MethodPost)
	t.HandleFunc("/{id}", s.handleGetVideo).Methods(http.MethodGet)

	n := r.PathPrefix("/api/notes").Subrouter()
	n.Use(s.requireAuth)
	n.Handle("/generate", s.rateLimit(http.HandlerFunc(s.handleGenerate))).Methods(http.MethodPost)
	n.HandleFunc("/save", s.handleSaveNote).Methods(http.MethodPost)
	n.HandleFunc("/languages", s.handleLanguages).Methods(http.MethodGet)
	n.HandleFunc("", s.handleListNotes).Methods(http.MethodGet)
	n.HandleFunc("/", s.handleListNotes).Methods(http.MethodGet)
	n.HandleFunc("/{id}", s.handleGetNote).Methods(http.MethodGet)
	n.HandleFunc("/{id}", s.handleUpdateNote).Methods(http.MethodPatch)
	n.HandleFunc("/{id}", s.handleDeleteNote).Methods(http.MethodDelete)
	n.HandleFunc("/{id}/highlight", s.handleAddHighlight).Methods(http.MethodPost)
	n.HandleFunc("/{id}/translate", s.handleTranslateNote).Methods(http.MethodPost)
	n.HandleFunc("/{id}/export/{format}", s.handleExport).Methods(http.MethodGet)

	s.handler = recoverer()(accessLog(s.cors()(s.limitBody(r))))
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("rest api listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("rest api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	data := map[string]string{"store": "ok"}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			data["store"] = err.Error()
		}
	}
	writeJSON(w, status, envelope{
		Success: status == http.StatusOK,
		Message: "EduNote Backend is running",
		Data:    map[string]any{"checks": data, "timestamp": time.Now().UTC().Format(time.RFC3339)},
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.deps.Metrics()))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
