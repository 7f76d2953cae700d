// internal/server/server.go
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Server wires the HTTP surface onto the browser core. Profile selection
// and session leasing happen per request from the X-Browser-Id and
// X-Session-Id headers; handlers never hold state between calls.
type Server struct {
	cfg        config.Interface
	logger     *zap.Logger
	manager    *browser.Manager
	dispatcher *browser.Dispatcher
	interactor *browser.Interactor
	paginator  *browser.Paginator
}

// New assembles the HTTP server around an already constructed manager.
// Start must have been called on the manager before requests arrive.
func New(cfg config.Interface, logger *zap.Logger, manager *browser.Manager) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "http_server")),
		manager:    manager,
		dispatcher: browser.NewDispatcher(logger),
		interactor: browser.NewInteractor(logger),
		paginator:  browser.NewPaginator(cfg.Search(), logger),
	}
}

// Router builds the chi router with the full route table and middleware
// chain. The caller mounts it on an http.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/ping", s.handlePing)

	r.Get("/start_session", s.handleStartSession)
	r.Get("/end_session", s.handleEndSession)
	r.Delete("/end_session", s.handleEndSession)

	r.Post("/search", s.handleSearch)
	r.Post("/content", s.handleContent)
	r.Post("/selectors", s.handleSelectors)
	r.Post("/screenshot", s.handleScreenshot)
	r.Post("/interact", s.handleInteract)

	r.Post("/move", s.handleMove)
	r.Post("/click", s.handleClick)
	r.Post("/scroll", s.handleScroll)

	r.Post("/browsers", s.handleCreateProfile)
	r.Get("/browsers", s.handleListProfiles)
	r.Delete("/browsers/{id}", s.handleCloseProfile)

	return r
}

// requestLogger emits one access line per request. The /ping probe is
// excluded so liveness polling does not flood the log.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("Request handled.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// -- Response helpers --

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

func (s *Server) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("Failed to write response body.", zap.Error(err))
	}
}

func (s *Server) respondPNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write screenshot body.", zap.Error(err))
	}
}

func (s *Server) respondDetail(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, schemas.ErrorResponse{Detail: detail})
}

// respondMapped translates a core error into its HTTP status.
func (s *Server) respondMapped(w http.ResponseWriter, err error) {
	s.respondDetail(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case browser.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, browser.ErrProfileNotFound), errors.Is(err, browser.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, browser.ErrProfileExists), errors.Is(err, browser.ErrDefaultProfile):
		return http.StatusConflict
	case errors.Is(err, browser.ErrNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody fills dst from the request body. dst arrives pre-seeded with
// defaults so absent fields keep them; an empty body leaves dst untouched
// and lets Validate report what is missing.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
