// Package chi serves the storydex HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/filter"
	"github.com/kailas-cloud/storydex/internal/domain/search/request"
	"github.com/kailas-cloud/storydex/internal/domain/search/response"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/logger"
	answeruc "github.com/kailas-cloud/storydex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/storydex/internal/usecase/health"
	"github.com/kailas-cloud/storydex/internal/version"
)

// Response headers.
const (
	HeaderSessionID       = "X-Session-ID"
	HeaderEmbeddingTokens = "X-Embedding-Tokens"
	HeaderGeneratorTokens = "X-Generator-Tokens"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxBodyBytes     = 64 << 10
)

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, q request.Query) (answeruc.Answer, error)
}

// Retriever runs retrieval without narration.
type Retriever interface {
	Retrieve(ctx context.Context, q request.Query) (response.Response, error)
}

// StoryReader reads the corpus.
type StoryReader interface {
	Get(id string) (*story.Story, error)
	List(expr filter.Expression, limit int) []*story.Story
}

// HealthChecker aggregates dependency checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	answers       Asker
	retrieval     Retriever
	stories       StoryReader
	health        HealthChecker
	namespace     string
	topK          int
	limit         int
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// Defaults applied to requests that leave namespace, top_k or limit unset.
type Defaults struct {
	Namespace string
	TopK      int
	Limit     int
}

// NewServer creates an HTTP API server.
func NewServer(
	answers Asker,
	retrieval Retriever,
	stories StoryReader,
	health HealthChecker,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		answers:   answers,
		retrieval: retrieval,
		stories:   stories,
		health:    health,
		namespace: defaults.Namespace,
		topK:      defaults.TopK,
		limit:     defaults.Limit,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeStoryNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorIndexUnavailable,
			http.StatusServiceUnavailable, ErrorResponseCodeVectorIndexUnavailable),
		sentinelHandler(domain.ErrGeneratorUnavailable,
			http.StatusBadGateway, ErrorResponseCodeGeneratorUnavailable),
	}
	return s
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}

	sessionID := sessionFromHeader(r.Header.Get(HeaderSessionID))
	w.Header().Set(HeaderSessionID, sessionID)

	q, err := s.buildQuery(req.SearchRequest, request.WithSession(sessionID))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.answers.Ask(ctx, q)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToAPI(ans, sessionID))
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	q, err := s.buildQuery(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.retrieval.Retrieve(ctx, q)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, responseToAPI(resp))
}

// ListStories handles GET /v1/stories.
func (s *Server) ListStories(w http.ResponseWriter, r *http.Request, params ListStoriesParams) {
	limit := defaultListLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		return
	}

	expr, err := filter.FromMap(params.filterMap())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	found := s.stories.List(expr, limit)
	items := make([]StoryItem, len(found))
	for i, st := range found {
		items[i] = storyToAPI(st)
	}
	writeJSON(w, http.StatusOK, StoryListResponse{Items: items, Count: len(items)})
}

// GetStory handles GET /v1/stories/{id}.
func (s *Server) GetStory(w http.ResponseWriter, r *http.Request, id string) {
	st, err := s.stories.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storyToAPI(st))
}

// HealthCheck handles GET /health. Degraded answers 200 while stories are loaded.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Stories == 0 && report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Stories: report.Stories,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) buildQuery(req SearchRequest, extra ...request.Option) (request.Query, error) {
	filters, err := filter.FromMap(req.Filters)
	if err != nil {
		return request.Query{}, fmt.Errorf("filters: %w", err)
	}
	prefilter, err := filter.FromMap(req.Prefilter)
	if err != nil {
		return request.Query{}, fmt.Errorf("prefilter: %w", err)
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = s.namespace
	}
	opts := []request.Option{
		request.WithFilters(filters),
		request.WithPrefilter(prefilter),
		request.WithNamespace(namespace),
		request.WithTopK(derefInt(req.TopK, s.topK)),
		request.WithLimit(derefInt(req.Limit, s.limit)),
		request.WithTrustedSource(req.Trusted),
	}
	return request.New(req.Query, append(opts, extra...)...)
}

// sessionFromHeader keeps a client session ID when it is a UUID and mints one otherwise.
func sessionFromHeader(v string) string {
	if id, err := uuid.Parse(v); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func setUsageHeaders(w http.ResponseWriter, u *domain.TokenUsage) {
	w.Header().Set(HeaderEmbeddingTokens, strconv.Itoa(u.EmbeddingTokens))
	w.Header().Set(HeaderGeneratorTokens, strconv.Itoa(u.GeneratorTokens))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidQuery,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorIndexUnavailable,
		domain.ErrGeneratorUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
