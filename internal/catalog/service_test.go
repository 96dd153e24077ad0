package catalog

import (
	"context"
	"errors"
	"testing"

	"dramastream/catalogservice/internal/database"
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
	"dramastream/catalogservice/internal/repository"
)

func newTestService(t *testing.T) (*Service, repository.ContentRepository) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	repo := repository.NewContentRepository(db)
	return NewService(repo), repo
}

func seed(t *testing.T, repo repository.ContentRepository, rows ...model.Content) {
	t.Helper()
	for i := range rows {
		if err := repo.Create(context.Background(), &rows[i]); err != nil {
			t.Fatalf("seed row %d: %v", i, err)
		}
	}
}

func activeRow(provider, pcid, title string) model.Content {
	return model.Content{
		Provider:          provider,
		ProviderContentID: pcid,
		Title:             title,
		Status:            domain.StatusActive,
		FetchedFrom:       domain.OriginTrending,
	}
}

func TestHomeFeed(t *testing.T) {
	svc, repo := newTestService(t)

	popular := activeRow("dramabox", "p-1", "Popular")
	popular.PopularityScore = 9.5
	finished := activeRow("reelshort", "f-1", "Finished")
	finished.IsFinished = true
	hidden := model.Content{
		Provider:          "dramabox",
		ProviderContentID: "h-1",
		Title:             "Hidden",
		Status:            domain.StatusHidden,
	}
	seed(t, repo, popular, finished, hidden)

	view, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if view.Total != 2 {
		t.Errorf("Total = %d, want 2 active rows", view.Total)
	}
	if len(view.Trending) != 2 || view.Trending[0].Title != "Popular" {
		t.Errorf("Trending = %+v, want popularity-ordered active rows", view.Trending)
	}
	if len(view.RecentlyFinished) != 1 || view.RecentlyFinished[0].Title != "Finished" {
		t.Errorf("RecentlyFinished = %+v, want only finished titles", view.RecentlyFinished)
	}
}

func TestExploreFilters(t *testing.T) {
	svc, repo := newTestService(t)

	kr := activeRow("dramabox", "kr-1", "Korean Drama")
	kr.Region = "KR"
	us := activeRow("reelshort", "us-1", "American Drama")
	us.Region = "US"
	seed(t, repo, kr, us)

	page, err := svc.Explore(context.Background(), repository.ExploreFilter{Region: "KR"}, 10, 1)
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Title != "Korean Drama" {
		t.Errorf("page = %+v, want only the KR row", page)
	}
}

func TestFilterFacets(t *testing.T) {
	svc, repo := newTestService(t)

	a := activeRow("dramabox", "a", "A")
	a.Region = "KR"
	a.ContentType = "drama"
	a.Year = 2024
	b := activeRow("reelshort", "b", "B")
	b.Region = "US"
	b.ContentType = "drama"
	b.Year = 2025
	seed(t, repo, a, b)

	options, err := svc.Filters(context.Background())
	if err != nil {
		t.Fatalf("Filters: %v", err)
	}
	if len(options.Regions) != 2 {
		t.Errorf("Regions = %v, want 2 distinct", options.Regions)
	}
	if len(options.ContentTypes) != 1 {
		t.Errorf("ContentTypes = %v, want deduplicated", options.ContentTypes)
	}
	if len(options.Years) != 2 {
		t.Errorf("Years = %v", options.Years)
	}
}

func TestContentDetailDoesNotMutate(t *testing.T) {
	svc, repo := newTestService(t)

	row := activeRow("dramabox", "d-1", "Detail")
	seed(t, repo, row)

	stored, err := repo.GetByProviderKey(context.Background(), "dramabox", "d-1")
	if err != nil {
		t.Fatalf("GetByProviderKey: %v", err)
	}

	detail, err := svc.Content(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if detail.Content == nil || detail.Content.Title != "Detail" {
		t.Fatalf("detail = %+v", detail)
	}

	after, err := repo.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.ViewCount != 0 {
		t.Errorf("ViewCount = %d, detail reads must not count views", after.ViewCount)
	}
}

func TestRecordView(t *testing.T) {
	svc, repo := newTestService(t)

	row := activeRow("dramabox", "v-1", "Watched")
	seed(t, repo, row)
	stored, err := repo.GetByProviderKey(context.Background(), "dramabox", "v-1")
	if err != nil {
		t.Fatalf("GetByProviderKey: %v", err)
	}

	if err := svc.RecordView(context.Background(), stored.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if err := svc.RecordView(context.Background(), stored.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	after, err := repo.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.ViewCount != 2 {
		t.Errorf("ViewCount = %d, want 2", after.ViewCount)
	}
	if err := svc.RecordView(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("RecordView(0) err = %v, want ErrInvalidID", err)
	}
}

func TestContentDetailIncludesLanguages(t *testing.T) {
	svc, repo := newTestService(t)

	row := activeRow("dramabox", "l-1", "With Languages")
	seed(t, repo, row)
	stored, err := repo.GetByProviderKey(context.Background(), "dramabox", "l-1")
	if err != nil {
		t.Fatalf("GetByProviderKey: %v", err)
	}

	lang := model.ContentLanguage{
		ContentID:    stored.ID,
		Type:         domain.LanguageSubtitle,
		LanguageCode: "en",
		IsDefault:    true,
	}
	if err := repo.UpsertLanguage(context.Background(), &lang); err != nil {
		t.Fatalf("UpsertLanguage: %v", err)
	}

	detail, err := svc.Content(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if len(detail.Languages) != 1 || detail.Languages[0].LanguageCode != "en" {
		t.Errorf("Languages = %+v", detail.Languages)
	}
}

func TestContentValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Content(context.Background(), 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("zero id error = %v, want ErrInvalidID", err)
	}
	if _, err := svc.Content(context.Background(), 9999); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}
