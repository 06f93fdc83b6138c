package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/hybrid-qa/internal/config"
	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
	"github.com/kirillkom/hybrid-qa/internal/observability/metrics"
)

const (
	serviceName  = "qa-api"
	maxBodyBytes = 1 << 20
)

type Router struct {
	cfg      config.Config
	answerer ports.QuestionAnswerer
	schema   *apiSchema
	metrics  *metrics.HTTPServerMetrics
	ready    func(context.Context) error
	logger   *slog.Logger
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithReadiness sets the dependency check behind /readyz.
func WithReadiness(check func(context.Context) error) RouterOption {
	return func(rt *Router) {
		rt.ready = check
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(cfg config.Config, answerer ports.QuestionAnswerer, opts ...RouterOption) (*Router, error) {
	schema, err := loadAPISchema(context.Background())
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:      cfg,
		answerer: answerer,
		schema:   schema,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.HandleFunc("/openapi.json", rt.openAPI)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/ask", rt.legacyAsk)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond, rt.rejected("backpressure"))
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.rejected("rate_limit"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejected(reason string) func() {
	return func() {
		if rt.metrics != nil {
			rt.metrics.RecordRejected(serviceName, reason)
		}
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var (
		query domain.Query
		err   error
	)
	switch r.Method {
	case http.MethodPost:
		query, err = rt.decodeAskBody(r)
	case http.MethodGet:
		query, err = bindAskQuery(r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rt.answer(w, r, query)
}

func (rt *Router) legacyAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.schema.validateBody("LegacyAskRequest", body); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Q    string `json:"q"`
		K    int    `json:"k"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	rt.answer(w, r, domain.Query{Text: req.Q, TopK: req.K, Mode: domain.Mode(req.Mode)})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request, query domain.Query) {
	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), query)
	if err != nil {
		rt.logger.Warn("qa_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.QA.ObserveAnswer(serviceName, "http", answer, time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) decodeAskBody(r *http.Request) (domain.Query, error) {
	body, err := readBody(r)
	if err != nil {
		return domain.Query{}, err
	}
	if err := rt.schema.validateBody("AskRequest", body); err != nil {
		return domain.Query{}, err
	}

	var req struct {
		Question   string   `json:"question"`
		TopK       int      `json:"top_k"`
		CandidateK int      `json:"candidate_k"`
		Alpha      *float64 `json:"alpha"`
		Mode       string   `json:"mode"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return domain.Query{
		Text:       req.Question,
		TopK:       req.TopK,
		CandidateK: req.CandidateK,
		Alpha:      req.Alpha,
		Mode:       domain.Mode(req.Mode),
	}, nil
}

func bindAskQuery(r *http.Request) (domain.Query, error) {
	params := r.URL.Query()

	var (
		text       string
		topK       *int
		candidateK *int
		alpha      *float64
		mode       *string
	)
	bindings := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &text},
		{"k", false, &topK},
		{"candidate_k", false, &candidateK},
		{"alpha", false, &alpha},
		{"mode", false, &mode},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, params, b.dest); err != nil {
			return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "bind query", fmt.Errorf("parameter %s: %w", b.name, err))
		}
	}

	query := domain.Query{Text: text, Alpha: alpha}
	if topK != nil {
		if *topK < 1 {
			return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "bind query", fmt.Errorf("k must be >= 1, got %d", *topK))
		}
		query.TopK = *topK
	}
	if candidateK != nil {
		if *candidateK < 1 {
			return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "bind query", fmt.Errorf("candidate_k must be >= 1, got %d", *candidateK))
		}
		query.CandidateK = *candidateK
	}
	if mode != nil {
		query.Mode = domain.Mode(*mode)
	}
	return query, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read request", err)
	}
	if len(body) > maxBodyBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read request", errors.New("request body too large"))
	}
	return body, nil
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
