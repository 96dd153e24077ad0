// Package ingest consumes normalized provider batches and reconciles
// them into the canonical store under the merge policy.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"dramastream/catalogservice/internal/cache"
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/metrics"
	"dramastream/catalogservice/internal/model"
	"dramastream/catalogservice/internal/repository"
)

var (
	ErrProviderRequired = errors.New("provider is required")
	ErrStoreUnavailable = errors.New("content store unavailable")
)

// lowConfidenceRatio is the fraction of a batch that may be skipped or
// placeholder-titled before the batch triggers a hidden-row cleanup.
const lowConfidenceRatio = 0.5

type Service struct {
	repo   repository.ContentRepository
	cache  *cache.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithCache(store *cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(repo repository.ContentRepository, opts ...Option) *Service {
	svc := &Service{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Ingest reconciles one provider batch. Items are processed sequentially
// because merge decisions read then write the same rows and the audit
// log order matters. One item's failure is counted and skipped; only a
// total inability to reach the store returns an error.
func (s *Service) Ingest(ctx context.Context, provider string, items []domain.ContentInput, origin domain.FetchOrigin, initialStatus domain.ContentStatus) (domain.IngestResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.IngestResult{}, ErrProviderRequired
	}
	if initialStatus != domain.StatusActive && initialStatus != domain.StatusHidden {
		initialStatus = domain.StatusHidden
	}

	var result domain.IngestResult
	lowConfidence := 0
	batchRows := make(map[uint]struct{}, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProviderContentID) == "" {
			result.Skipped++
			lowConfidence++
			continue
		}
		outcome, rowID, err := s.ingestOne(ctx, provider, item, origin, initialStatus)
		if err != nil {
			if isStoreDown(err) {
				return result, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			s.logger.Warn("ingest item failed",
				slog.String("provider", provider),
				slog.String("providerContentId", item.ProviderContentID),
				slog.String("error", err.Error()),
			)
			result.Skipped++
			continue
		}
		if rowID != 0 {
			batchRows[rowID] = struct{}{}
		}
		result.Processed++
		switch outcome {
		case outcomeCreated:
			result.Created++
			metrics.IngestRowsTotal.WithLabelValues(provider, "created").Inc()
			if !item.HasUsableTitle() {
				lowConfidence++
			}
		case outcomeUpdated:
			result.Updated++
			metrics.IngestRowsTotal.WithLabelValues(provider, "updated").Inc()
		default:
			metrics.IngestRowsTotal.WithLabelValues(provider, "unchanged").Inc()
		}
	}

	s.writeAuditLog(ctx, provider, origin, result)

	if result.Created > 0 || result.Updated > 0 {
		s.invalidateReadCaches(ctx)
	}
	if len(items) > 0 && float64(lowConfidence) >= lowConfidenceRatio*float64(len(items)) {
		s.purgeHiddenPlaceholders(ctx, provider, batchRows)
	}
	return result, nil
}

type itemOutcome int

const (
	outcomeUnchanged itemOutcome = iota
	outcomeCreated
	outcomeUpdated
)

func (s *Service) ingestOne(ctx context.Context, provider string, item domain.ContentInput, origin domain.FetchOrigin, initialStatus domain.ContentStatus) (itemOutcome, uint, error) {
	existing, err := s.repo.GetByProviderKey(ctx, provider, strings.TrimSpace(item.ProviderContentID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return outcomeUnchanged, 0, err
	}

	if existing == nil {
		created := newContent(provider, item, origin, initialStatus)
		err := s.repo.Create(ctx, created)
		if err == nil {
			return outcomeCreated, created.ID, nil
		}
		if !repository.IsDuplicateKey(err) {
			return outcomeUnchanged, 0, err
		}
		// Lost the insert race to a concurrent batch; the uniqueness
		// constraint is the consistency mechanism, fall through to merge.
		existing, err = s.repo.GetByProviderKey(ctx, provider, strings.TrimSpace(item.ProviderContentID))
		if err != nil {
			return outcomeUnchanged, 0, err
		}
	}

	changed := merge(existing, item)
	if existing.Status == domain.StatusHidden && initialStatus == domain.StatusActive && domain.TrustedOrigin(origin) {
		existing.Status = domain.StatusActive
		changed = true
	}
	if !changed {
		return outcomeUnchanged, existing.ID, nil
	}
	if err := s.repo.Save(ctx, existing); err != nil {
		return outcomeUnchanged, existing.ID, err
	}
	return outcomeUpdated, existing.ID, nil
}

// RecordLanguage upserts the subtitle variant a sync batch was observed
// under for one ingested row. Re-recording the same variant is a no-op.
func (s *Service) RecordLanguage(ctx context.Context, provider, providerContentID, languageCode string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	languageCode = strings.ToLower(strings.TrimSpace(languageCode))
	if provider == "" {
		return ErrProviderRequired
	}
	if languageCode == "" || strings.TrimSpace(providerContentID) == "" {
		return fmt.Errorf("%w: providerContentId and languageCode", ErrMissingParameter)
	}
	row, err := s.repo.GetByProviderKey(ctx, provider, strings.TrimSpace(providerContentID))
	if err != nil {
		return err
	}
	return s.repo.UpsertLanguage(ctx, &model.ContentLanguage{
		ContentID:    row.ID,
		Type:         domain.LanguageSubtitle,
		LanguageCode: languageCode,
		Source:       "sync",
	})
}

func (s *Service) writeAuditLog(ctx context.Context, provider string, origin domain.FetchOrigin, result domain.IngestResult) {
	entry := &model.SyncLog{
		Provider:  provider,
		BatchID:   uuid.NewString(),
		Origin:    string(origin),
		Processed: result.Processed,
		Created:   result.Created,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
	}
	if err := s.repo.AppendSyncLog(ctx, entry); err != nil {
		// Audit is observability, not correctness; the batch result stands.
		s.logger.Warn("sync log write failed", slog.String("provider", provider), slog.String("error", err.Error()))
	}
}

// purgeHiddenPlaceholders drops stale hidden placeholder rows for a
// provider after a batch that was mostly garbage. Rows the current batch
// created or merged are kept, so an opportunistic single-item ingest
// still leaves its hidden row behind for a later sync to improve. Active
// rows are left for the explicit admin cleanup.
func (s *Service) purgeHiddenPlaceholders(ctx context.Context, provider string, batchRows map[uint]struct{}) {
	rows, err := s.repo.FindLowConfidence(ctx, provider, domain.CleanupUnknownTitle)
	if err != nil {
		s.logger.Warn("low-confidence scan failed", slog.String("provider", provider), slog.String("error", err.Error()))
		return
	}
	deleted := 0
	for _, row := range rows {
		if row.Status != domain.StatusHidden {
			continue
		}
		if _, ok := batchRows[row.ID]; ok {
			continue
		}
		if err := s.repo.DeleteWithLanguages(ctx, row.ID); err != nil {
			s.logger.Warn("low-confidence delete failed", slog.Uint64("id", uint64(row.ID)), slog.String("error", err.Error()))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info("purged hidden placeholder rows",
			slog.String("provider", provider),
			slog.Int("deleted", deleted),
		)
	}
}

func (s *Service) invalidateReadCaches(ctx context.Context) {
	s.cache.InvalidatePattern(ctx, "home")
	s.cache.InvalidatePattern(ctx, "explore")
	s.cache.InvalidatePattern(ctx, "filters")
	s.cache.InvalidatePattern(ctx, "suggest")
}

// isStoreDown distinguishes total store unavailability from per-row
// failures. Context-level and connection-level errors abort the batch.
func isStoreDown(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "bad connection")
}
