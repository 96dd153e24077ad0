package reelshort

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dramastream/catalogservice/internal/domain"
)

func TestNormalizeCurrentShape(t *testing.T) {
	raw := map[string]any{
		"drama_id":      "rs-881",
		"title":         "Runaway Bride CEO",
		"desc":          "<p>She ran. He followed.</p>",
		"cover_url":     "https://cdn.example.com/rs-881.jpg",
		"episode_total": float64(72),
		"tag_list":      []any{"Romance", "CEO"},
		"area":          "US",
		"category":      "drama",
		"release_year":  float64(2024),
		"is_end":        true,
	}

	input := Normalize(raw)
	if input.ProviderContentID != "rs-881" {
		t.Fatalf("ProviderContentID = %q", input.ProviderContentID)
	}
	if input.Description != "She ran. He followed." {
		t.Errorf("Description = %q, want HTML stripped", input.Description)
	}
	if input.EpisodeCount != 72 {
		t.Errorf("EpisodeCount = %d, want 72", input.EpisodeCount)
	}
	if !input.IsFinished {
		t.Error("IsFinished = false, want true")
	}
}

func TestNormalizeLegacyShape(t *testing.T) {
	raw := map[string]any{
		"id":          "770",
		"name":        "Hidden Heir",
		"description": "A janitor with a secret.",
		"thumbnail":   "https://cdn.example.com/770.png",
		"episodes":    "45",
		"tags":        "Revenge,Family",
		"country":     "US",
	}

	input := Normalize(raw)
	if input.ProviderContentID != "770" {
		t.Fatalf("ProviderContentID = %q", input.ProviderContentID)
	}
	if input.Title != "Hidden Heir" {
		t.Errorf("Title = %q", input.Title)
	}
	if input.EpisodeCount != 45 {
		t.Errorf("EpisodeCount = %d, want 45 from string field", input.EpisodeCount)
	}
	if len(input.Tags) != 2 || input.Tags[0] != "Revenge" {
		t.Errorf("Tags = %v, want split comma list", input.Tags)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	input := Normalize(map[string]any{})
	if input.ProviderContentID != "" || input.Title != "" || input.EpisodeCount != 0 {
		t.Errorf("empty payload should normalize to zero input, got %+v", input)
	}
}

func TestSearchParsesList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "bride" {
			t.Errorf("q = %q, want bride", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"data":{"list":[
			{"drama_id":"rs-1","title":"First"},
			{"drama_id":"","title":"No ID"},
			{"drama_id":"rs-2","title":"Second"}
		]}}`))
	}))
	defer server.Close()

	p := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	results, err := p.Search(context.Background(), domain.SearchRequest{Query: "bride", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (empty-ID row dropped)", len(results))
	}
	if results[0].ProviderContentID != "rs-1" || results[1].ProviderContentID != "rs-2" {
		t.Errorf("unexpected ids: %+v", results)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	if _, err := p.Search(context.Background(), domain.SearchRequest{Query: "x"}); err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}
