package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cartridge/memory/internal/memory"
	"github.com/cartridge/memory/internal/middleware"
)

const maxSampleBatch = 1024

// MemoryView is the read-only surface of the actor's memory exposed over HTTP.
type MemoryView interface {
	Stats() memory.Stats
	Sample(batchSize, windowLength int) ([]memory.Experience[[]float64, int], error)
}

// Server exposes memory statistics and debug samples.
type Server struct {
	memory MemoryView
	logger zerolog.Logger
}

// NewServer constructs a Server instance.
func NewServer(mem MemoryView, logger zerolog.Logger) *Server {
	return &Server{memory: mem, logger: logger}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/memory", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/sample", s.handleSample)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.memory.Stats())
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	batchSize, err := intParam(r, "batch_size", 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "batch_size must be an integer")
		return
	}
	windowLength, err := intParam(r, "window_length", 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "window_length must be an integer")
		return
	}
	if batchSize > maxSampleBatch {
		s.writeError(w, http.StatusBadRequest, "batch_size too large")
		return
	}

	batch, err := s.memory.Sample(batchSize, windowLength)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"experiences": batch})
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, memory.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, memory.ErrInsufficientData):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
