package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/semaphore"

	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/domain"
)

// maxConcurrentProviders bounds simultaneous upstream queries so a wide
// provider list cannot exhaust sockets or hammer remote catalogs.
const maxConcurrentProviders = 8

type preparedSearch struct {
	query         string
	limit         int
	page          int
	selected      []Provider
	providerNames []string
}

func (s *Service) Search(ctx context.Context, request domain.SearchRequest, providerNames []string) (domain.SearchResponse, error) {
	prepared, err := s.prepareSearch(request, providerNames)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	if s.store == nil {
		return s.executePreparedSearch(ctx, prepared)
	}

	key := cache.Key("search", "v1",
		strings.ToLower(prepared.query),
		strings.Join(prepared.providerNames, ","),
		strconv.Itoa(prepared.limit),
		strconv.Itoa(prepared.page),
	)
	return cache.GetOrSet(ctx, s.store, key, s.searchTTL, func(ctx context.Context) (domain.SearchResponse, error) {
		return s.executePreparedSearch(ctx, prepared)
	})
}

// SearchUncached runs the fan-out directly, bypassing the response cache.
// The suggest fallback uses it so a cached empty search cannot mask
// freshly ingested rows.
func (s *Service) SearchUncached(ctx context.Context, request domain.SearchRequest, providerNames []string) (domain.SearchResponse, error) {
	prepared, err := s.prepareSearch(request, providerNames)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	return s.executePreparedSearch(ctx, prepared)
}

func (s *Service) prepareSearch(request domain.SearchRequest, providerNames []string) (preparedSearch, error) {
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return preparedSearch{}, ErrInvalidQuery
	}

	limit := request.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	page := request.Page
	if page < 1 {
		page = 1
	}

	selected, err := s.resolveProviders(providerNames)
	if err != nil {
		return preparedSearch{}, err
	}

	keys := make([]string, 0, len(selected))
	for _, provider := range selected {
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name != "" {
			keys = append(keys, name)
		}
	}

	return preparedSearch{
		query:         query,
		limit:         limit,
		page:          page,
		selected:      selected,
		providerNames: keys,
	}, nil
}

func (s *Service) executePreparedSearch(ctx context.Context, prepared preparedSearch) (domain.SearchResponse, error) {
	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	statuses := make([]domain.ProviderStatus, len(prepared.selected))
	itemsByKey := make(map[string]domain.SearchItem)
	order := make([]string, 0, len(prepared.selected)*prepared.limit)

	var mu sync.Mutex
	sem := semaphore.NewWeighted(maxConcurrentProviders)
	var wg sync.WaitGroup

	for i, provider := range prepared.selected {
		wg.Add(1)
		go func(index int, current Provider) {
			defer wg.Done()

			providerKey := strings.ToLower(strings.TrimSpace(current.Name()))

			if err := sem.Acquire(runCtx, 1); err != nil {
				mu.Lock()
				statuses[index] = domain.ProviderStatus{
					Name:  providerKey,
					OK:    false,
					Error: "context cancelled",
				}
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			now := time.Now()
			if blocked, until, lastErr := s.isProviderBlocked(providerKey, now); blocked {
				mu.Lock()
				statuses[index] = domain.ProviderStatus{
					Name:  providerKey,
					OK:    false,
					Error: fmt.Sprintf("provider temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr),
				}
				mu.Unlock()
				return
			}

			providerStartedAt := time.Now()
			var results []domain.ContentInput
			searchErr := RetryWithBackoff(runCtx, DefaultRetryConfig(), func() error {
				var err error
				results, err = current.Search(runCtx, domain.SearchRequest{
					Query: prepared.query,
					Limit: prepared.limit,
					Page:  prepared.page,
				})
				return err
			})
			elapsed := time.Since(providerStartedAt)
			s.recordProviderResult(providerKey, searchErr, elapsed, time.Now())

			if searchErr != nil {
				s.logger.Warn("provider search failed",
					slog.String("provider", providerKey),
					slog.String("query", prepared.query),
					slog.Int64("elapsedMs", elapsed.Milliseconds()),
					slog.String("error", searchErr.Error()),
				)
			}

			status := domain.ProviderStatus{
				Name:  providerKey,
				OK:    searchErr == nil,
				Count: len(results),
			}
			if searchErr != nil {
				status.Error = searchErr.Error()
			}

			mu.Lock()
			statuses[index] = status
			for _, input := range results {
				id := strings.TrimSpace(input.ProviderContentID)
				if id == "" {
					continue
				}
				key := providerKey + ":" + id
				if _, exists := itemsByKey[key]; exists {
					continue
				}
				itemsByKey[key] = domain.SearchItem{Provider: providerKey, Input: input}
				order = append(order, key)
			}
			mu.Unlock()
		}(i, provider)
	}
	wg.Wait()

	// Stable output: provider name first, then upstream result order.
	sort.SliceStable(order, func(i, j int) bool {
		return itemsByKey[order[i]].Provider < itemsByKey[order[j]].Provider
	})

	items := make([]domain.SearchItem, 0, len(order))
	for _, key := range order {
		items = append(items, itemsByKey[key])
	}

	return domain.SearchResponse{
		Query:     prepared.query,
		Items:     items,
		Providers: statuses,
		ElapsedMS: time.Since(startedAt).Milliseconds(),
		Limit:     prepared.limit,
		Page:      prepared.page,
	}, nil
}
