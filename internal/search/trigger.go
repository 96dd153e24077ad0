package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dramastream/catalogservice/internal/domain"
)

// Normalizer converts one raw upstream payload entry into a ContentInput.
// Each provider package exports one.
type Normalizer func(raw map[string]any) domain.ContentInput

// Dispatcher runs a unit of background work. Production wiring uses
// `go fn()`; tests inject a synchronous dispatcher to drain deliberately.
type Dispatcher func(fn func())

// LanguageRecorder stores the language variant a sync batch was
// observed under for each ingested row.
type LanguageRecorder interface {
	RecordLanguage(ctx context.Context, provider, providerContentID, languageCode string) error
}

// SyncTrigger accepts client-observed catalog items and fires them into
// ingestion without blocking the caller. Each (provider, language) pair
// is attempted at most once per process lifetime; the pair is marked
// before dispatch so concurrent triggers cannot double-submit.
type SyncTrigger struct {
	ingestor    Ingestor
	recorder    LanguageRecorder
	normalizers map[string]Normalizer
	dispatch    Dispatcher
	timeout     time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	attempted map[string]struct{}
}

type TriggerOption func(*SyncTrigger)

func WithTriggerLogger(logger *slog.Logger) TriggerOption {
	return func(t *SyncTrigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithDispatcher(dispatch Dispatcher) TriggerOption {
	return func(t *SyncTrigger) {
		if dispatch != nil {
			t.dispatch = dispatch
		}
	}
}

func WithLanguageRecorder(recorder LanguageRecorder) TriggerOption {
	return func(t *SyncTrigger) {
		t.recorder = recorder
	}
}

func WithTriggerTimeout(timeout time.Duration) TriggerOption {
	return func(t *SyncTrigger) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

func NewSyncTrigger(ingestor Ingestor, normalizers map[string]Normalizer, opts ...TriggerOption) *SyncTrigger {
	registry := make(map[string]Normalizer, len(normalizers))
	for name, fn := range normalizers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || fn == nil {
			continue
		}
		registry[key] = fn
	}

	trigger := &SyncTrigger{
		ingestor:    ingestor,
		normalizers: registry,
		dispatch:    func(fn func()) { go fn() },
		timeout:     30 * time.Second,
		logger:      slog.Default(),
		attempted:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(trigger)
	}
	return trigger
}

// Trigger schedules ingestion of rawItems observed under provider and
// language. It returns true when work was dispatched and false when the
// pair was already attempted or the provider is unknown. It never blocks
// on the ingestion itself.
func (t *SyncTrigger) Trigger(provider, language string, rawItems []map[string]any) bool {
	providerKey := strings.ToLower(strings.TrimSpace(provider))
	languageKey := strings.ToLower(strings.TrimSpace(language))
	if providerKey == "" || len(rawItems) == 0 {
		return false
	}

	normalize, ok := t.normalizers[providerKey]
	if !ok {
		t.logger.Warn("sync trigger for unknown provider", slog.String("provider", providerKey))
		return false
	}

	pair := providerKey + "|" + languageKey

	t.mu.Lock()
	if _, done := t.attempted[pair]; done {
		t.mu.Unlock()
		return false
	}
	// Mark before dispatch so a concurrent trigger for the same pair
	// observes it as attempted even while the work is still queued.
	t.attempted[pair] = struct{}{}
	t.mu.Unlock()

	inputs := make([]domain.ContentInput, 0, len(rawItems))
	for _, raw := range rawItems {
		input := normalize(raw)
		if strings.TrimSpace(input.ProviderContentID) == "" {
			continue
		}
		inputs = append(inputs, input)
	}
	if len(inputs) == 0 {
		return false
	}

	t.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		result, err := t.ingestor.Ingest(ctx, providerKey, inputs, domain.OriginHome, domain.StatusActive)
		if err != nil {
			t.logger.Warn("background sync failed",
				slog.String("provider", providerKey),
				slog.String("language", languageKey),
				slog.String("error", err.Error()),
			)
			return
		}
		t.logger.Info("background sync completed",
			slog.String("provider", providerKey),
			slog.String("language", languageKey),
			slog.Int("processed", result.Processed),
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated),
		)

		if t.recorder == nil || languageKey == "" {
			return
		}
		for _, input := range inputs {
			if err := t.recorder.RecordLanguage(ctx, providerKey, input.ProviderContentID, languageKey); err != nil {
				t.logger.Warn("language record failed",
					slog.String("provider", providerKey),
					slog.String("providerContentId", input.ProviderContentID),
					slog.String("language", languageKey),
					slog.String("error", err.Error()),
				)
			}
		}
	})
	return true
}

// Reset clears the attempted set. Tests use it between scenarios.
func (t *SyncTrigger) Reset() {
	t.mu.Lock()
	t.attempted = make(map[string]struct{})
	t.mu.Unlock()
}
