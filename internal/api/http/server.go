package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dramastream/catalogservice/internal/catalog"
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/ingest"
	"dramastream/catalogservice/internal/repository"
	"dramastream/catalogservice/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest, providers []string) (domain.SearchResponse, error)
	Providers() []domain.ProviderInfo
	ProviderDiagnostics() []domain.ProviderDiagnostics
}

type SuggestService interface {
	Suggest(ctx context.Context, query string) ([]domain.Suggestion, error)
}

type CatalogService interface {
	Home(ctx context.Context) (catalog.HomeView, error)
	Explore(ctx context.Context, filter repository.ExploreFilter, limit, page int) (catalog.ExplorePage, error)
	Filters(ctx context.Context) (repository.FilterOptions, error)
	Content(ctx context.Context, id uint) (catalog.ContentDetail, error)
	RecordView(ctx context.Context, id uint) error
}

type AdminService interface {
	CorrectProviderTag(ctx context.Context, fromProvider, toProvider string) (domain.CorrectionResult, error)
	CleanupLowConfidence(ctx context.Context, provider string, rule domain.CleanupRule) (domain.CleanupResult, error)
}

type Trigger interface {
	Trigger(provider, language string, rawItems []map[string]any) bool
}

type Server struct {
	search  SearchService
	suggest SuggestService
	catalog CatalogService
	admin   AdminService
	trigger Trigger
	logger  *slog.Logger
}

const maxQueryLength = 200

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSuggest(suggest SuggestService) ServerOption {
	return func(s *Server) { s.suggest = suggest }
}

func WithCatalog(service CatalogService) ServerOption {
	return func(s *Server) { s.catalog = service }
}

func WithAdmin(admin AdminService) ServerOption {
	return func(s *Server) { s.admin = admin }
}

func WithTrigger(trigger Trigger) ServerOption {
	return func(s *Server) { s.trigger = trigger }
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/catalog/search", s.handleSearch)
	mux.HandleFunc("/catalog/suggest", s.handleSuggest)
	mux.HandleFunc("/catalog/home", s.handleHome)
	mux.HandleFunc("/catalog/explore", s.handleExplore)
	mux.HandleFunc("/catalog/filters", s.handleFilters)
	mux.HandleFunc("/catalog/content", s.handleContent)
	mux.HandleFunc("/catalog/content/view", s.handleContentView)
	mux.HandleFunc("/catalog/sync/", s.handleSync)
	mux.HandleFunc("/catalog/providers", s.handleProviders)
	mux.HandleFunc("/catalog/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("/admin/providers/correct", s.handleProviderCorrection)
	mux.HandleFunc("/admin/cleanup", s.handleCleanup)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "catalog-service",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 200 characters)")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	providers := parseCSV(r.URL.Query().Get("providers"))

	response, err := s.search.Search(r.Context(), domain.SearchRequest{
		Query: query,
		Limit: limit,
		Page:  page,
	}, providers)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.Any("providers", providers),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, search.ErrInvalidQuery), errors.Is(err, search.ErrUnknownProvider):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrNoProviders):
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}

	failed := 0
	for _, status := range response.Providers {
		if !status.OK {
			failed++
		}
	}
	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.Int("items", len(response.Items)),
		slog.Int64("elapsedMs", response.ElapsedMS),
		slog.Int("failedProviders", failed),
	)

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.suggest == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 200 characters)")
		return
	}

	items, err := s.suggest.Suggest(r.Context(), query)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
			return
		}
		s.logger.Warn("suggest failed", slog.String("query", truncate(query, 60)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "suggest failed")
		return
	}
	if items == nil {
		items = []domain.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	view, err := s.catalog.Home(r.Context())
	if err != nil {
		s.logger.Error("home feed failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "home feed failed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	limit, err := parsePositiveInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	filter := repository.ExploreFilter{
		Region:      strings.TrimSpace(r.URL.Query().Get("region")),
		ContentType: strings.TrimSpace(r.URL.Query().Get("contentType")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		year, convErr := strconv.Atoi(raw)
		if convErr != nil || year < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid year")
			return
		}
		filter.Year = year
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("finished")); raw != "" {
		finished := parseOptionalBool(raw)
		filter.Finished = &finished
	}

	result, err := s.catalog.Explore(r.Context(), filter, limit, page)
	if err != nil {
		s.logger.Error("explore failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "explore failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	options, err := s.catalog.Filters(r.Context())
	if err != nil {
		s.logger.Error("filter facets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "filters failed")
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}

	detail, err := s.catalog.Content(r.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "content not found")
		case errors.Is(err, catalog.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Error("content detail failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal_error", "content lookup failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type viewRequest struct {
	ID uint `json:"id"`
}

func (s *Server) handleContentView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	var req viewRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return
	}

	if err := s.catalog.RecordView(r.Context(), req.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "content not found")
		case errors.Is(err, catalog.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.logger.Error("view record failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal_error", "view record failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "recorded": true})
}

type syncRequest struct {
	Language string           `json:"language"`
	Items    []map[string]any `json:"items"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.trigger == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "sync trigger is not configured")
		return
	}

	provider := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/catalog/sync/")))
	if provider == "" || strings.Contains(provider, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "provider is required")
		return
	}

	var body syncRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(body.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "items are required")
		return
	}

	dispatched := s.trigger.Trigger(provider, body.Language, body.Items)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"provider":   provider,
		"language":   body.Language,
		"dispatched": dispatched,
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/catalog/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Providers(),
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.ProviderDiagnostics(),
	})
}

type correctionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleProviderCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.admin == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "admin service is not configured")
		return
	}

	var body correctionRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	// Parameters are validated here before the job touches the store.
	if strings.TrimSpace(body.From) == "" || strings.TrimSpace(body.To) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "from and to providers are required")
		return
	}

	result, err := s.admin.CorrectProviderTag(r.Context(), body.From, body.To)
	if err != nil {
		if errors.Is(err, ingest.ErrMissingParameter) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.logger.Error("provider correction failed",
			slog.String("from", body.From),
			slog.String("to", body.To),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "correction failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cleanupRequest struct {
	Provider string `json:"provider"`
	Rule     string `json:"rule"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.admin == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "admin service is not configured")
		return
	}

	var body cleanupRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(body.Provider) == "" || strings.TrimSpace(body.Rule) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "provider and rule are required")
		return
	}

	result, err := s.admin.CleanupLowConfidence(r.Context(), body.Provider, domain.CleanupRule(body.Rule))
	if err != nil {
		if errors.Is(err, ingest.ErrMissingParameter) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.logger.Error("cleanup failed",
			slog.String("provider", body.Provider),
			slog.String("rule", body.Rule),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
