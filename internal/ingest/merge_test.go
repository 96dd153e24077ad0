package ingest

import (
	"reflect"
	"testing"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
)

func TestMergeNeverDowngrades(t *testing.T) {
	existing := &model.Content{
		Title:        "X",
		Description:  "kept",
		PosterURL:    "http://x/p.jpg",
		EpisodeCount: 60,
		Region:       "us",
		Year:         2024,
	}
	changed := merge(existing, domain.ContentInput{
		Title:        "",
		Description:  "",
		PosterURL:    "",
		EpisodeCount: 40,
	})
	if changed {
		t.Fatal("empty incoming fields must not register a change")
	}
	if existing.Title != "X" || existing.PosterURL != "http://x/p.jpg" || existing.EpisodeCount != 60 {
		t.Fatalf("fields downgraded: %#v", existing)
	}
}

func TestMergePlaceholderTitleLoses(t *testing.T) {
	existing := &model.Content{Title: "Real Title"}
	if merge(existing, domain.ContentInput{Title: "Unknown Title"}) {
		t.Fatal("placeholder must not beat a real title")
	}

	existing = &model.Content{Title: "Unknown Title"}
	if !merge(existing, domain.ContentInput{Title: "Real Title"}) {
		t.Fatal("real title should replace placeholder")
	}
	if existing.Title != "Real Title" {
		t.Fatalf("unexpected title: %q", existing.Title)
	}
}

func TestMergeDivergentTitleBecomesAlternate(t *testing.T) {
	existing := &model.Content{Title: "Fated to My Alpha"}
	if !merge(existing, domain.ContentInput{Title: "Fated to the Alpha King"}) {
		t.Fatal("expected change")
	}
	if existing.Title != "Fated to My Alpha" {
		t.Fatalf("primary title must not flip: %q", existing.Title)
	}
	if !reflect.DeepEqual(existing.AlternateTitles, []string{"Fated to the Alpha King"}) {
		t.Fatalf("unexpected alternates: %#v", existing.AlternateTitles)
	}
	// Repeating the same input is a no-op.
	if merge(existing, domain.ContentInput{Title: "fated to the alpha king"}) {
		t.Fatal("case-insensitive duplicate alternate registered as change")
	}
}

func TestMergeEpisodeCountMonotonic(t *testing.T) {
	existing := &model.Content{Title: "T", EpisodeCount: 40}
	if !merge(existing, domain.ContentInput{EpisodeCount: 55}) {
		t.Fatal("higher count should apply")
	}
	if existing.EpisodeCount != 55 {
		t.Fatalf("unexpected count: %d", existing.EpisodeCount)
	}
	if merge(existing, domain.ContentInput{EpisodeCount: 50}) {
		t.Fatal("lower count must be ignored")
	}
}

func TestMergeTagsUnion(t *testing.T) {
	existing := &model.Content{Title: "T", Tags: []string{"CEO", "Revenge"}}
	if !merge(existing, domain.ContentInput{Tags: []string{"revenge", "Werewolf"}}) {
		t.Fatal("new tag should register a change")
	}
	want := []string{"CEO", "Revenge", "Werewolf"}
	if !reflect.DeepEqual(existing.Tags, want) {
		t.Fatalf("unexpected tags: %#v", existing.Tags)
	}
}

func TestMergeFlagsMoveOneWay(t *testing.T) {
	existing := &model.Content{Title: "T", IsUpcoming: true}
	if !merge(existing, domain.ContentInput{IsFinished: true}) {
		t.Fatal("expected change")
	}
	if !existing.IsFinished || existing.IsUpcoming {
		t.Fatalf("unexpected flags: %#v", existing)
	}
	if merge(existing, domain.ContentInput{IsFinished: false, IsUpcoming: true}) {
		t.Fatal("flags must not flow backwards")
	}
}

func TestNewContentDefaultsPlaceholderTitle(t *testing.T) {
	content := newContent("dramabox", domain.ContentInput{ProviderContentID: "1"}, domain.OriginSearch, domain.StatusHidden)
	if content.Title != domain.PlaceholderTitle {
		t.Fatalf("unexpected title: %q", content.Title)
	}
	if content.Status != domain.StatusHidden || content.FetchedFrom != domain.OriginSearch {
		t.Fatalf("unexpected row: %#v", content)
	}
}
