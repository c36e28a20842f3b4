// Package chi exposes the embedding trigger over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domskill "github.com/kailas-cloud/vecmigrate/internal/domain/skill"
	"github.com/kailas-cloud/vecmigrate/internal/logger"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
	healthuc "github.com/kailas-cloud/vecmigrate/internal/usecase/health"
)

// TriggerPath is the custom-skill route, named after the function it replaces.
const TriggerPath = "/api/embed_trigger"

// maxBodyBytes bounds a trigger request body.
const maxBodyBytes = 16 << 20

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server handles the trigger, health and metrics routes.
type Server struct {
	skill  SkillProcessor
	health HealthReporter
	logger *zap.Logger
}

// NewServer creates an HTTP server for the embedding trigger.
func NewServer(skill SkillProcessor, health HealthReporter, logger *zap.Logger) *Server {
	return &Server{skill: skill, health: health, logger: logger}
}

// Router builds the chi router with the middleware stack. Empty functionKeys disable auth.
func (s *Server) Router(functionKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(RequestID)
	r.Use(WideEvent(s.logger))
	r.Use(FunctionKeyMiddleware(functionKeys))
	r.Use(metrics.Middleware("/metrics"))

	r.Post(TriggerPath, s.EmbedTrigger)
	r.Get(TriggerPath, s.EmbedTrigger)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// EmbedTrigger handles POST /api/embed_trigger.
func (s *Server) EmbedTrigger(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req domskill.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return
		}
		log.Warn("Invalid trigger request", zap.Error(err))
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	log.Info("Embedding trigger received", zap.Int("records", len(req.Values)))
	resp := s.skill.Process(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
