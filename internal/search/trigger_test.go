package search

import (
	"context"
	"errors"
	"testing"

	"dramastream/catalogservice/internal/domain"
)

var errTriggerStore = errors.New("store down")

// syncDispatcher runs dispatched work inline so tests observe completion
// deterministically.
func syncDispatcher(fn func()) { fn() }

func testNormalizers() map[string]Normalizer {
	return map[string]Normalizer{
		"dramabox": func(raw map[string]any) domain.ContentInput {
			id, _ := raw["bookId"].(string)
			title, _ := raw["bookName"].(string)
			return domain.ContentInput{ProviderContentID: id, Title: title}
		},
	}
}

func TestTriggerDispatchesOncePerPair(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	items := []map[string]any{
		{"bookId": "b-1", "bookName": "One"},
		{"bookId": "b-2", "bookName": "Two"},
	}

	if !trigger.Trigger("dramabox", "en", items) {
		t.Fatal("first trigger should dispatch")
	}
	if trigger.Trigger("dramabox", "en", items) {
		t.Fatal("second trigger for same pair should be a no-op")
	}

	if len(ingestor.calls) != 1 {
		t.Fatalf("ingestor calls = %d, want 1", len(ingestor.calls))
	}
	call := ingestor.calls[0]
	if call.provider != "dramabox" || len(call.items) != 2 {
		t.Errorf("ingest call = %+v", call)
	}
}

type languageCall struct {
	provider, providerContentID, languageCode string
}

type recordingLanguageRecorder struct {
	calls []languageCall
	err   error
}

func (r *recordingLanguageRecorder) RecordLanguage(_ context.Context, provider, providerContentID, languageCode string) error {
	r.calls = append(r.calls, languageCall{provider, providerContentID, languageCode})
	return r.err
}

func TestTriggerRecordsBatchLanguage(t *testing.T) {
	ingestor := &recordingIngestor{}
	recorder := &recordingLanguageRecorder{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(),
		WithDispatcher(syncDispatcher),
		WithLanguageRecorder(recorder),
	)

	ok := trigger.Trigger("dramabox", "EN", []map[string]any{
		{"bookId": "b-1", "bookName": "One"},
		{"bookId": "b-2", "bookName": "Two"},
	})
	if !ok {
		t.Fatal("trigger should dispatch")
	}

	if len(recorder.calls) != 2 {
		t.Fatalf("language calls = %d, want one per ingested item", len(recorder.calls))
	}
	for i, want := range []string{"b-1", "b-2"} {
		call := recorder.calls[i]
		if call.provider != "dramabox" || call.providerContentID != want || call.languageCode != "en" {
			t.Errorf("call %d = %+v", i, call)
		}
	}
}

func TestTriggerLanguageRecordFailureIsSwallowed(t *testing.T) {
	ingestor := &recordingIngestor{}
	recorder := &recordingLanguageRecorder{err: errTriggerStore}
	trigger := NewSyncTrigger(ingestor, testNormalizers(),
		WithDispatcher(syncDispatcher),
		WithLanguageRecorder(recorder),
	)

	if !trigger.Trigger("dramabox", "en", []map[string]any{{"bookId": "b-1"}}) {
		t.Fatal("trigger should dispatch despite recorder failure")
	}
	if len(ingestor.calls) != 1 {
		t.Fatalf("ingestor calls = %d, want 1", len(ingestor.calls))
	}
}

func TestTriggerSeparateLanguagesDispatchSeparately(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	items := []map[string]any{{"bookId": "b-1", "bookName": "One"}}

	if !trigger.Trigger("dramabox", "en", items) {
		t.Fatal("en trigger should dispatch")
	}
	if !trigger.Trigger("dramabox", "es", items) {
		t.Fatal("es trigger should dispatch independently")
	}
	if len(ingestor.calls) != 2 {
		t.Fatalf("ingestor calls = %d, want 2", len(ingestor.calls))
	}
}

func TestTriggerUnknownProvider(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	if trigger.Trigger("nosuch", "en", []map[string]any{{"bookId": "x"}}) {
		t.Fatal("unknown provider must not dispatch")
	}
	if len(ingestor.calls) != 0 {
		t.Errorf("ingestor calls = %d, want 0", len(ingestor.calls))
	}
}

func TestTriggerSkipsItemsWithoutID(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	items := []map[string]any{
		{"bookName": "No ID"},
		{"bookId": "b-9", "bookName": "Kept"},
	}
	if !trigger.Trigger("dramabox", "en", items) {
		t.Fatal("trigger with one valid item should dispatch")
	}
	if len(ingestor.calls) != 1 || len(ingestor.calls[0].items) != 1 {
		t.Fatalf("ingest call = %+v, want only the item with an id", ingestor.calls)
	}
	if ingestor.calls[0].items[0].ProviderContentID != "b-9" {
		t.Errorf("kept item = %+v", ingestor.calls[0].items[0])
	}
}

func TestTriggerAllInvalidItemsIsNoOp(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	if trigger.Trigger("dramabox", "en", []map[string]any{{"bookName": "No ID"}}) {
		t.Fatal("trigger without any usable item must not report dispatch")
	}
}

func TestTriggerIngestFailureIsSwallowed(t *testing.T) {
	ingestor := &recordingIngestor{err: errTriggerStore}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	// Must not panic or propagate; the caller only learns dispatch happened.
	if !trigger.Trigger("dramabox", "en", []map[string]any{{"bookId": "b-1", "bookName": "One"}}) {
		t.Fatal("trigger should dispatch even if ingestion later fails")
	}
}

func TestTriggerResetAllowsReDispatch(t *testing.T) {
	ingestor := &recordingIngestor{}
	trigger := NewSyncTrigger(ingestor, testNormalizers(), WithDispatcher(syncDispatcher))

	items := []map[string]any{{"bookId": "b-1", "bookName": "One"}}
	trigger.Trigger("dramabox", "en", items)
	trigger.Reset()
	if !trigger.Trigger("dramabox", "en", items) {
		t.Fatal("trigger after Reset should dispatch again")
	}
	if len(ingestor.calls) != 2 {
		t.Fatalf("ingestor calls = %d, want 2", len(ingestor.calls))
	}
}
