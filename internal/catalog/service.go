package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/model"
	"dramastream/catalogservice/internal/repository"
)

var ErrInvalidID = errors.New("content id must be positive")

// TTL tiers by volatility: the home feed churns with every sync, explore
// pages less so, filter facets barely at all.
const (
	defaultHomeTTL    = 30 * time.Second
	defaultExploreTTL = 2 * time.Minute
	defaultFiltersTTL = 10 * time.Minute
)

// Service is the cached read side over the canonical store. Writes go
// through ingest; this layer only lists, fetches and counts views.
type Service struct {
	repo       repository.ContentRepository
	store      *cache.Store
	homeTTL    time.Duration
	exploreTTL time.Duration
	filtersTTL time.Duration
	homeLimit  int
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCache(store *cache.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithTTLs(home, explore, filters time.Duration) Option {
	return func(s *Service) {
		if home > 0 {
			s.homeTTL = home
		}
		if explore > 0 {
			s.exploreTTL = explore
		}
		if filters > 0 {
			s.filtersTTL = filters
		}
	}
}

func NewService(repo repository.ContentRepository, opts ...Option) *Service {
	svc := &Service{
		repo:       repo,
		homeTTL:    defaultHomeTTL,
		exploreTTL: defaultExploreTTL,
		filtersTTL: defaultFiltersTTL,
		homeLimit:  20,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// HomeView is the aggregate landing feed: the most popular active rows
// plus a strip of newly finished titles.
type HomeView struct {
	Trending         []ContentSummary `json:"trending"`
	RecentlyFinished []ContentSummary `json:"recentlyFinished"`
	Total            int64            `json:"total"`
}

type ContentSummary struct {
	ID           uint     `json:"id"`
	Provider     string   `json:"provider"`
	Title        string   `json:"title"`
	PosterURL    string   `json:"posterUrl,omitempty"`
	EpisodeCount int      `json:"episodeCount,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Region       string   `json:"region,omitempty"`
	Year         int      `json:"year,omitempty"`
	IsFinished   bool     `json:"isFinished"`
	ViewCount    int64    `json:"viewCount"`
}

type ExplorePage struct {
	Items []ContentSummary `json:"items"`
	Total int64            `json:"total"`
	Limit int              `json:"limit"`
	Page  int              `json:"page"`
}

type ContentDetail struct {
	Content   *model.Content          `json:"content"`
	Languages []model.ContentLanguage `json:"languages"`
}

func (s *Service) Home(ctx context.Context) (HomeView, error) {
	key := cache.Key("home", "v1")
	return cache.GetOrSet(ctx, s.store, key, s.homeTTL, func(ctx context.Context) (HomeView, error) {
		rows, total, err := s.repo.ListActive(ctx, repository.ExploreFilter{}, s.homeLimit, 1)
		if err != nil {
			return HomeView{}, fmt.Errorf("load home feed: %w", err)
		}

		finished := true
		recent, _, err := s.repo.ListActive(ctx, repository.ExploreFilter{Finished: &finished}, s.homeLimit/2, 1)
		if err != nil {
			return HomeView{}, fmt.Errorf("load finished strip: %w", err)
		}

		return HomeView{
			Trending:         summarize(rows),
			RecentlyFinished: summarize(recent),
			Total:            total,
		}, nil
	})
}

func (s *Service) Explore(ctx context.Context, filter repository.ExploreFilter, limit, page int) (ExplorePage, error) {
	if limit <= 0 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	finished := ""
	if filter.Finished != nil {
		finished = strconv.FormatBool(*filter.Finished)
	}
	key := cache.Key("explore", "v1",
		filter.Region, filter.ContentType, strconv.Itoa(filter.Year), finished,
		strconv.Itoa(limit), strconv.Itoa(page),
	)
	return cache.GetOrSet(ctx, s.store, key, s.exploreTTL, func(ctx context.Context) (ExplorePage, error) {
		rows, total, err := s.repo.ListActive(ctx, filter, limit, page)
		if err != nil {
			return ExplorePage{}, fmt.Errorf("explore listing: %w", err)
		}
		return ExplorePage{
			Items: summarize(rows),
			Total: total,
			Limit: limit,
			Page:  page,
		}, nil
	})
}

func (s *Service) Filters(ctx context.Context) (repository.FilterOptions, error) {
	key := cache.Key("filters", "v1")
	return cache.GetOrSet(ctx, s.store, key, s.filtersTTL, func(ctx context.Context) (repository.FilterOptions, error) {
		return s.repo.FilterOptions(ctx)
	})
}

// Content returns one full record with its language tracks. The read
// never mutates the row; view counting is a separate explicit call.
func (s *Service) Content(ctx context.Context, id uint) (ContentDetail, error) {
	if id == 0 {
		return ContentDetail{}, ErrInvalidID
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ContentDetail{}, err
	}
	languages, err := s.repo.LanguagesFor(ctx, id)
	if err != nil {
		return ContentDetail{}, fmt.Errorf("load languages: %w", err)
	}
	return ContentDetail{Content: row, Languages: languages}, nil
}

// RecordView bumps the view counter for a row clients report as watched.
func (s *Service) RecordView(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidID
	}
	return s.repo.IncrementView(ctx, id)
}

func summarize(rows []model.Content) []ContentSummary {
	items := make([]ContentSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, ContentSummary{
			ID:           row.ID,
			Provider:     row.Provider,
			Title:        row.Title,
			PosterURL:    row.PosterURL,
			EpisodeCount: row.EpisodeCount,
			Tags:         row.Tags,
			Region:       row.Region,
			Year:         row.Year,
			IsFinished:   row.IsFinished,
			ViewCount:    row.ViewCount,
		})
	}
	return items
}
