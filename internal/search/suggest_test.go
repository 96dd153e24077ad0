package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
)

type fakeLocalSearcher struct {
	rows []model.Content
	err  error
}

func (f *fakeLocalSearcher) SearchActive(_ context.Context, _ string, limit int) ([]model.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

type recordingIngestor struct {
	mu    sync.Mutex
	calls []ingestCall
	err   error
}

type ingestCall struct {
	provider string
	items    []domain.ContentInput
	origin   domain.FetchOrigin
	status   domain.ContentStatus
}

func (r *recordingIngestor) Ingest(_ context.Context, provider string, items []domain.ContentInput, origin domain.FetchOrigin, status domain.ContentStatus) (domain.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.IngestResult{}, r.err
	}
	r.calls = append(r.calls, ingestCall{provider: provider, items: items, origin: origin, status: status})
	return domain.IngestResult{Processed: len(items), Created: len(items)}, nil
}

func localRow(id uint, provider, pcid, title string) model.Content {
	return model.Content{
		ID:                id,
		Provider:          provider,
		ProviderContentID: pcid,
		Title:             title,
		Status:            domain.StatusActive,
	}
}

func TestSuggestLocalOnlyAboveThreshold(t *testing.T) {
	rows := make([]model.Content, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, localRow(uint(i), "dramabox", fmt.Sprintf("id-%d", i), fmt.Sprintf("Title %d", i)))
	}
	remote := &fakeProvider{name: "dramabox", results: []domain.ContentInput{input("r-1", "Remote")}}
	ingestor := &recordingIngestor{}

	svc := NewSuggestService(
		NewService([]Provider{remote}, time.Second),
		&fakeLocalSearcher{rows: rows},
		ingestor,
	)

	suggestions, err := svc.Suggest(context.Background(), "title")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 5 {
		t.Fatalf("len(suggestions) = %d, want 5 local rows", len(suggestions))
	}
	for _, sg := range suggestions {
		if !sg.Local {
			t.Errorf("suggestion %s marked remote, want local-only response", sg.ProviderContentID)
		}
	}
	if remote.calls.Load() != 0 {
		t.Errorf("remote provider called %d times, want 0 at threshold", remote.calls.Load())
	}
	if len(ingestor.calls) != 0 {
		t.Errorf("ingestor called %d times, want 0", len(ingestor.calls))
	}
}

func TestSuggestFallbackBelowThreshold(t *testing.T) {
	local := &fakeLocalSearcher{rows: []model.Content{
		localRow(1, "dramabox", "id-1", "Local Hit"),
	}}
	remote := &fakeProvider{name: "reelshort", results: []domain.ContentInput{
		input("r-1", "Remote One"),
		input("r-2", "Remote Two"),
	}}
	ingestor := &recordingIngestor{}

	svc := NewSuggestService(
		NewService([]Provider{remote}, time.Second),
		local,
		ingestor,
	)

	suggestions, err := svc.Suggest(context.Background(), "hit")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("len(suggestions) = %d, want 1 local + 2 remote", len(suggestions))
	}
	if !suggestions[0].Local || suggestions[0].Title != "Local Hit" {
		t.Errorf("first suggestion = %+v, want the local row first", suggestions[0])
	}

	if len(ingestor.calls) != 1 {
		t.Fatalf("ingestor calls = %d, want 1 per provider group", len(ingestor.calls))
	}
	call := ingestor.calls[0]
	if call.provider != "reelshort" || len(call.items) != 2 {
		t.Errorf("ingest call = %+v", call)
	}
	if call.origin != domain.OriginSearch || call.status != domain.StatusHidden {
		t.Errorf("fallback must ingest hidden with search origin, got origin=%s status=%s", call.origin, call.status)
	}
}

func TestSuggestDedupesPreferringLocal(t *testing.T) {
	local := &fakeLocalSearcher{rows: []model.Content{
		localRow(9, "dramabox", "dup-1", "Stored Title"),
	}}
	remote := &fakeProvider{name: "dramabox", results: []domain.ContentInput{
		input("dup-1", "Upstream Title"),
		input("new-1", "Fresh"),
	}}

	svc := NewSuggestService(
		NewService([]Provider{remote}, time.Second),
		local,
		&recordingIngestor{},
	)

	suggestions, err := svc.Suggest(context.Background(), "title")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("len(suggestions) = %d, want duplicate collapsed", len(suggestions))
	}
	if suggestions[0].Title != "Stored Title" || !suggestions[0].Local {
		t.Errorf("duplicate should keep the local row, got %+v", suggestions[0])
	}
}

func TestSuggestServesLocalWhenFallbackFails(t *testing.T) {
	local := &fakeLocalSearcher{rows: []model.Content{
		localRow(1, "dramabox", "id-1", "Only Local"),
	}}
	broken := &fakeProvider{name: "shortmax", err: errors.New("boom")}

	svc := NewSuggestService(
		NewService([]Provider{broken}, time.Second),
		local,
		&recordingIngestor{},
	)

	suggestions, err := svc.Suggest(context.Background(), "only")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	// Provider errors are isolated inside the aggregator, so fallback
	// yields zero remote hits and the local row still serves.
	if len(suggestions) != 1 || suggestions[0].Title != "Only Local" {
		t.Errorf("suggestions = %+v, want the local row alone", suggestions)
	}
}

func TestSuggestIngestFailureDoesNotBreakResponse(t *testing.T) {
	remote := &fakeProvider{name: "reelshort", results: []domain.ContentInput{input("r-1", "Remote")}}
	svc := NewSuggestService(
		NewService([]Provider{remote}, time.Second),
		&fakeLocalSearcher{},
		&recordingIngestor{err: errors.New("store down")},
	)

	suggestions, err := svc.Suggest(context.Background(), "remote")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("len(suggestions) = %d, want remote hit served despite ingest failure", len(suggestions))
	}
}

func TestSuggestRejectsBlankQuery(t *testing.T) {
	svc := NewSuggestService(NewService(nil, time.Second), &fakeLocalSearcher{}, &recordingIngestor{})
	if _, err := svc.Suggest(context.Background(), "   "); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Hello   World  ", "hello world"},
		{"CAFÉ love", "café love"},
		{"", ""},
		{"\tone\ntwo", "one two"},
	}
	for _, tc := range cases {
		if got := normalizeQuery(tc.in); got != tc.want {
			t.Errorf("normalizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
