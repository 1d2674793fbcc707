package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/complyline/assessor/internal/core/domain"
	"github.com/complyline/assessor/internal/core/ports"
	"github.com/complyline/assessor/internal/observability/metrics"
)

const identityHeader = "X-Identity"

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
}

type Router struct {
	cfg       Config
	assessor  ports.Assessor
	submitter ports.JobSubmitter
	reader    ports.JobReader
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg Config,
	assessor ports.Assessor,
	submitter ports.JobSubmitter,
	reader ports.JobReader,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		assessor:  assessor,
		submitter: submitter,
		reader:    reader,
		metrics:   serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/assess", rt.assess)
	mux.HandleFunc("/assess-async", rt.assessAsync)
	mux.HandleFunc("/assess-status", rt.assessStatus)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, 50*time.Millisecond)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	handler = corsMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("assessor-api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type assessRequest struct {
	Identity    string                 `json:"identity"`
	DomainInput domain.AssessmentInput `json:"domainInput"`
}

// decodeAssessRequest reads the submission body. The identity header wins
// over the body field so gateway-injected identities cannot be spoofed by
// the payload.
func decodeAssessRequest(r *http.Request) (string, domain.AssessmentInput, error) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", domain.AssessmentInput{}, domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}

	identity := strings.TrimSpace(r.Header.Get(identityHeader))
	if identity == "" {
		identity = strings.TrimSpace(req.Identity)
	}
	return identity, req.DomainInput, nil
}

func (rt *Router) assess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	identity, input, err := decodeAssessRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if identity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity is required"})
		return
	}
	if err := input.Validate(); err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.assessor.Run(r.Context(), identity, input)
	if err != nil {
		rt.observeOutcome(err)
		writeError(w, err)
		return
	}

	rt.observeResult(result)
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (rt *Router) assessAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	identity, input, err := decodeAssessRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitter.Submit(r.Context(), identity, input)
	if err != nil {
		rt.observeOutcome(err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.ID,
		"status": "processing",
	})
}

func (rt *Router) assessStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	jobID := strings.TrimSpace(r.URL.Query().Get("jobId"))
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "jobId is required"})
		return
	}
	identity := strings.TrimSpace(r.Header.Get(identityHeader))
	if identity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Identity header is required"})
		return
	}

	job, err := rt.reader.GetByID(r.Context(), jobID, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	switch job.Status {
	case domain.StatusCompleted:
		writeJSON(w, http.StatusOK, map[string]any{"status": "completed", "result": job.Result})
	case domain.StatusFailed:
		writeJSON(w, http.StatusOK, map[string]any{"status": "failed", "message": job.ErrorMessage})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "processing"})
	}
}

func (rt *Router) observeOutcome(err error) {
	if rt.metrics == nil {
		return
	}
	if _, ok := domain.AsRateLimited(err); ok {
		rt.metrics.RecordRateLimited("assessor-api")
	}
}

func (rt *Router) observeResult(result domain.AssessmentResult) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAssessment("assessor-api", result.Degraded)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
