package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/domain"
)

var (
	ErrInvalidQuery    = errors.New("query is required")
	ErrNoProviders     = errors.New("no catalog providers configured")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider is one upstream catalog adapter. Search returns normalized
// inputs only; identity assignment and persistence happen downstream.
type Provider interface {
	Name() string
	Info() domain.ProviderInfo
	Search(ctx context.Context, request domain.SearchRequest) ([]domain.ContentInput, error)
}

type Service struct {
	providers map[string]Provider
	timeout   time.Duration
	logger    *slog.Logger
	store     *cache.Store
	searchTTL time.Duration
	healthMu  sync.Mutex
	health    map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache enables response caching for full search calls. A nil store
// leaves caching off.
func WithCache(store *cache.Store, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.store = store
		if ttl > 0 {
			s.searchTTL = ttl
		}
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	registry := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name == "" {
			continue
		}
		registry[name] = provider
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &Service{
		providers: registry,
		timeout:   timeout,
		logger:    slog.Default(),
		searchTTL: 2 * time.Minute,
		health:    make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Providers() []domain.ProviderInfo {
	if len(s.providers) == 0 {
		return nil
	}
	items := make([]domain.ProviderInfo, 0, len(s.providers))
	for name, provider := range s.providers {
		info := provider.Info()
		if info.Name == "" {
			info.Name = name
		}
		info.Name = strings.ToLower(strings.TrimSpace(info.Name))
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

func (s *Service) resolveProviders(providerNames []string) ([]Provider, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	if len(providerNames) == 0 {
		all := make([]Provider, 0, len(s.providers))
		for _, provider := range s.providers {
			all = append(all, provider)
		}
		sort.Slice(all, func(i, j int) bool {
			return strings.ToLower(all[i].Name()) < strings.ToLower(all[j].Name())
		})
		return all, nil
	}

	selected := make([]Provider, 0, len(providerNames))
	seen := make(map[string]struct{}, len(providerNames))
	for _, rawName := range providerNames {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if name == "" {
			continue
		}
		provider, ok := s.providers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		selected = append(selected, provider)
	}

	if len(selected) == 0 {
		return nil, ErrNoProviders
	}
	return selected, nil
}
