package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/metrics"
	"dramastream/catalogservice/internal/model"
)

const (
	defaultSuggestThreshold = 5
	defaultSuggestLimit     = 10
)

// LocalSearcher is the slice of the repository the suggest flow needs.
type LocalSearcher interface {
	SearchActive(ctx context.Context, query string, limit int) ([]model.Content, error)
}

// Ingestor persists remote hits so future suggest calls resolve locally.
type Ingestor interface {
	Ingest(ctx context.Context, provider string, items []domain.ContentInput, origin domain.FetchOrigin, initialStatus domain.ContentStatus) (domain.IngestResult, error)
}

// SuggestService implements the local-first, remote-fallback suggestion
// flow. Local rows win on duplicates; remote hits are stored hidden so
// they never surface as verified content before a trusted sync sees them.
type SuggestService struct {
	search    *Service
	repo      LocalSearcher
	ingestor  Ingestor
	store     *cache.Store
	ttl       time.Duration
	threshold int
	limit     int
	logger    *slog.Logger
}

type SuggestOption func(*SuggestService)

func WithSuggestLogger(logger *slog.Logger) SuggestOption {
	return func(s *SuggestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSuggestCache(store *cache.Store, ttl time.Duration) SuggestOption {
	return func(s *SuggestService) {
		s.store = store
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSuggestThreshold overrides the minimum local match count below
// which the remote fallback fires.
func WithSuggestThreshold(threshold int) SuggestOption {
	return func(s *SuggestService) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

func WithSuggestLimit(limit int) SuggestOption {
	return func(s *SuggestService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func NewSuggestService(search *Service, repo LocalSearcher, ingestor Ingestor, opts ...SuggestOption) *SuggestService {
	svc := &SuggestService{
		search:    search,
		repo:      repo,
		ingestor:  ingestor,
		ttl:       30 * time.Second,
		threshold: defaultSuggestThreshold,
		limit:     defaultSuggestLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *SuggestService) Suggest(ctx context.Context, query string) ([]domain.Suggestion, error) {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return nil, ErrInvalidQuery
	}

	key := cache.Key("suggest", "v1", normalized)
	return cache.GetOrSet(ctx, s.store, key, s.ttl, func(ctx context.Context) ([]domain.Suggestion, error) {
		return s.compute(ctx, normalized)
	})
}

func (s *SuggestService) compute(ctx context.Context, query string) ([]domain.Suggestion, error) {
	local, err := s.repo.SearchActive(ctx, query, s.limit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0, s.limit)
	seen := make(map[string]struct{}, s.limit)
	for _, row := range local {
		key := row.Provider + ":" + row.ProviderContentID
		seen[key] = struct{}{}
		suggestions = append(suggestions, domain.Suggestion{
			ID:                row.ID,
			Provider:          row.Provider,
			ProviderContentID: row.ProviderContentID,
			Title:             row.Title,
			PosterURL:         row.PosterURL,
			EpisodeCount:      row.EpisodeCount,
			Local:             true,
		})
	}

	if len(suggestions) >= s.threshold {
		if len(suggestions) > s.limit {
			suggestions = suggestions[:s.limit]
		}
		return suggestions, nil
	}

	metrics.SuggestFallbacksTotal.Inc()
	response, err := s.search.SearchUncached(ctx, domain.SearchRequest{Query: query, Limit: s.limit}, nil)
	if err != nil {
		// Local rows (possibly zero) still serve the caller.
		s.logger.Warn("suggest fallback failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return suggestions, nil
	}

	s.persistRemote(ctx, query, response.Items)

	for _, item := range response.Items {
		key := item.Provider + ":" + item.Input.ProviderContentID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, domain.Suggestion{
			Provider:          item.Provider,
			ProviderContentID: item.Input.ProviderContentID,
			Title:             item.Input.Title,
			PosterURL:         item.Input.PosterURL,
			EpisodeCount:      item.Input.EpisodeCount,
			Local:             false,
		})
		if len(suggestions) >= s.limit {
			break
		}
	}
	return suggestions, nil
}

// persistRemote stores fallback hits grouped per provider, hidden and
// tagged with the search origin. Failures are logged, never raised.
func (s *SuggestService) persistRemote(ctx context.Context, query string, items []domain.SearchItem) {
	if s.ingestor == nil || len(items) == 0 {
		return
	}

	byProvider := make(map[string][]domain.ContentInput)
	for _, item := range items {
		byProvider[item.Provider] = append(byProvider[item.Provider], item.Input)
	}

	for provider, inputs := range byProvider {
		if _, err := s.ingestor.Ingest(ctx, provider, inputs, domain.OriginSearch, domain.StatusHidden); err != nil {
			s.logger.Warn("suggest fallback ingest failed",
				slog.String("provider", provider),
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
		}
	}
}

// normalizeQuery canonicalizes the cache key: NFKC fold, lowercase,
// collapsed whitespace. "Café  Love" and "café love" share an entry.
func normalizeQuery(raw string) string {
	folded := norm.NFKC.String(strings.TrimSpace(raw))
	lower := strings.ToLower(folded)
	return strings.Join(strings.Fields(lower), " ")
}
