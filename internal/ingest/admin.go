package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
	"dramastream/catalogservice/internal/repository"
)

var ErrMissingParameter = errors.New("missing required parameter")

// CorrectProviderTag fixes rows systematically mislabeled under
// fromProvider. Each suspect row is partitioned: if the correct provider
// already has the same providerContentId the suspect is a duplicate and
// is deleted (languages first); otherwise it is re-tagged. The partition
// is computed as a dry run before any destructive step executes.
// Re-running after completion yields zero changes.
func (s *Service) CorrectProviderTag(ctx context.Context, fromProvider, toProvider string) (domain.CorrectionResult, error) {
	fromProvider = strings.ToLower(strings.TrimSpace(fromProvider))
	toProvider = strings.ToLower(strings.TrimSpace(toProvider))
	if fromProvider == "" || toProvider == "" {
		return domain.CorrectionResult{}, fmt.Errorf("%w: from and to providers", ErrMissingParameter)
	}
	if fromProvider == toProvider {
		return domain.CorrectionResult{}, errors.New("from and to providers must differ")
	}

	suspects, err := s.repo.ListByProvider(ctx, fromProvider)
	if err != nil {
		return domain.CorrectionResult{}, fmt.Errorf("list suspect rows: %w", err)
	}

	// Dry run: partition every suspect before touching anything.
	var toDelete, toRetag []model.Content
	for _, suspect := range suspects {
		_, err := s.repo.GetByProviderKey(ctx, toProvider, suspect.ProviderContentID)
		switch {
		case err == nil:
			toDelete = append(toDelete, suspect)
		case errors.Is(err, repository.ErrNotFound):
			toRetag = append(toRetag, suspect)
		default:
			return domain.CorrectionResult{}, fmt.Errorf("partition row %d: %w", suspect.ID, err)
		}
	}
	s.logger.Info("provider correction planned",
		slog.String("from", fromProvider),
		slog.String("to", toProvider),
		slog.Int("duplicates", len(toDelete)),
		slog.Int("retags", len(toRetag)),
	)

	var result domain.CorrectionResult
	for _, row := range toDelete {
		if err := s.repo.DeleteWithLanguages(ctx, row.ID); err != nil {
			return result, fmt.Errorf("delete duplicate %d: %w", row.ID, err)
		}
		result.Deleted++
		result.DeletedIDs = append(result.DeletedIDs, row.ID)
	}
	for _, row := range toRetag {
		if err := s.repo.ReassignProvider(ctx, row.ID, toProvider); err != nil {
			return result, fmt.Errorf("retag %d: %w", row.ID, err)
		}
		result.Updated++
		result.UpdatedIDs = append(result.UpdatedIDs, row.ID)
	}

	if result.Deleted > 0 || result.Updated > 0 {
		s.invalidateReadCaches(ctx)
	}
	return result, nil
}

// CleanupLowConfidence purges records matching a low-confidence rule for
// one provider and reports exactly which ids were removed.
func (s *Service) CleanupLowConfidence(ctx context.Context, provider string, rule domain.CleanupRule) (domain.CleanupResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.CleanupResult{}, fmt.Errorf("%w: provider", ErrMissingParameter)
	}
	if rule != domain.CleanupUnknownTitle && rule != domain.CleanupNoCover {
		return domain.CleanupResult{}, fmt.Errorf("%w: rule must be unknownTitle or noCover", ErrMissingParameter)
	}

	rows, err := s.repo.FindLowConfidence(ctx, provider, rule)
	if err != nil {
		return domain.CleanupResult{}, fmt.Errorf("find low confidence rows: %w", err)
	}

	result := domain.CleanupResult{IDs: make([]uint, 0, len(rows))}
	for _, row := range rows {
		if err := s.repo.DeleteWithLanguages(ctx, row.ID); err != nil {
			return result, fmt.Errorf("delete %d: %w", row.ID, err)
		}
		result.DeletedCount++
		result.IDs = append(result.IDs, row.ID)
	}
	if result.DeletedCount > 0 {
		s.invalidateReadCaches(ctx)
		s.logger.Info("low confidence cleanup complete",
			slog.String("provider", provider),
			slog.String("rule", string(rule)),
			slog.Int("deleted", result.DeletedCount),
		)
	}
	return result, nil
}
