package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
)

var ErrNotFound = errors.New("content not found")

// ExploreFilter narrows the browse listing. Zero values mean "any".
type ExploreFilter struct {
	Region      string
	ContentType string
	Year        int
	Finished    *bool
}

// FilterOptions is the distinct facet values the explore UI offers.
type FilterOptions struct {
	Regions      []string `json:"regions"`
	ContentTypes []string `json:"contentTypes"`
	Years        []int    `json:"years"`
}

// ContentRepository is the typed access layer over the canonical store.
type ContentRepository interface {
	GetByProviderKey(ctx context.Context, provider, providerContentID string) (*model.Content, error)
	GetByID(ctx context.Context, id uint) (*model.Content, error)
	Create(ctx context.Context, content *model.Content) error
	Save(ctx context.Context, content *model.Content) error
	SearchActive(ctx context.Context, query string, limit int) ([]model.Content, error)
	ListActive(ctx context.Context, filter ExploreFilter, limit, page int) ([]model.Content, int64, error)
	ListByProvider(ctx context.Context, provider string) ([]model.Content, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	DeleteWithLanguages(ctx context.Context, id uint) error
	ReassignProvider(ctx context.Context, id uint, toProvider string) error
	FindLowConfidence(ctx context.Context, provider string, rule domain.CleanupRule) ([]model.Content, error)
	IncrementView(ctx context.Context, id uint) error
	UpsertLanguage(ctx context.Context, lang *model.ContentLanguage) error
	LanguagesFor(ctx context.Context, contentID uint) ([]model.ContentLanguage, error)
	AppendSyncLog(ctx context.Context, entry *model.SyncLog) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// IsDuplicateKey reports whether err is a uniqueness violation. The exact
// error differs between the postgres and sqlite drivers, so match on text.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

func (r *contentRepository) GetByProviderKey(ctx context.Context, provider, providerContentID string) (*model.Content, error) {
	var content model.Content
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_content_id = ?", provider, providerContentID).
		First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetByID(ctx context.Context, id uint) (*model.Content, error) {
	var content model.Content
	err := r.db.WithContext(ctx).First(&content, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) Create(ctx context.Context, content *model.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepository) Save(ctx context.Context, content *model.Content) error {
	return r.db.WithContext(ctx).Save(content).Error
}

func (r *contentRepository) SearchActive(ctx context.Context, query string, limit int) ([]model.Content, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	var list []model.Content
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("title LIKE ?", pattern).
		Order("popularity_score DESC, view_count DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *contentRepository) ListActive(ctx context.Context, filter ExploreFilter, limit, page int) ([]model.Content, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	db := r.db.WithContext(ctx).Model(&model.Content{}).Where("status = ?", domain.StatusActive)
	if filter.Region != "" {
		db = db.Where("region = ?", filter.Region)
	}
	if filter.ContentType != "" {
		db = db.Where("content_type = ?", filter.ContentType)
	}
	if filter.Year != 0 {
		db = db.Where("year = ?", filter.Year)
	}
	if filter.Finished != nil {
		db = db.Where("is_finished = ?", *filter.Finished)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Content
	err := db.Order("popularity_score DESC, view_count DESC, updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *contentRepository) ListByProvider(ctx context.Context, provider string) ([]model.Content, error) {
	var list []model.Content
	err := r.db.WithContext(ctx).Where("provider = ?", provider).Find(&list).Error
	return list, err
}

func (r *contentRepository) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var options FilterOptions
	active := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Content{}).Where("status = ?", domain.StatusActive)
	}
	if err := active().Distinct("region").Where("region <> ''").Order("region").Pluck("region", &options.Regions).Error; err != nil {
		return options, err
	}
	if err := active().Distinct("content_type").Where("content_type <> ''").Order("content_type").Pluck("content_type", &options.ContentTypes).Error; err != nil {
		return options, err
	}
	if err := active().Distinct("year").Where("year > 0").Order("year DESC").Pluck("year", &options.Years).Error; err != nil {
		return options, err
	}
	return options, nil
}

// DeleteWithLanguages removes a content row and its language variants in
// one transaction. Languages go first to honor the ownership relation.
func (r *contentRepository) DeleteWithLanguages(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", id).Delete(&model.ContentLanguage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Content{}, id).Error
	})
}

func (r *contentRepository) ReassignProvider(ctx context.Context, id uint, toProvider string) error {
	return r.db.WithContext(ctx).
		Model(&model.Content{}).
		Where("id = ?", id).
		Update("provider", toProvider).Error
}

func (r *contentRepository) FindLowConfidence(ctx context.Context, provider string, rule domain.CleanupRule) ([]model.Content, error) {
	db := r.db.WithContext(ctx).Where("provider = ?", provider)
	switch rule {
	case domain.CleanupUnknownTitle:
		db = db.Where("title = ? OR title = ''", domain.PlaceholderTitle)
	case domain.CleanupNoCover:
		db = db.Where("poster_url = ''")
	default:
		return nil, errors.New("unknown cleanup rule")
	}
	var list []model.Content
	err := db.Find(&list).Error
	return list, err
}

func (r *contentRepository) IncrementView(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.Content{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentRepository) UpsertLanguage(ctx context.Context, lang *model.ContentLanguage) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "content_id"}, {Name: "type"}, {Name: "language_code"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"provider_language_id", "is_default", "source"}),
	}).Create(lang).Error
}

// LanguagesFor returns the variants of a content row. At most one default
// per type is surfaced; storage may hold several, the first wins here.
func (r *contentRepository) LanguagesFor(ctx context.Context, contentID uint) ([]model.ContentLanguage, error) {
	var list []model.ContentLanguage
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("type, is_default DESC, language_code").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	seenDefault := make(map[domain.LanguageType]bool, 2)
	for i := range list {
		if !list[i].IsDefault {
			continue
		}
		if seenDefault[list[i].Type] {
			list[i].IsDefault = false
			continue
		}
		seenDefault[list[i].Type] = true
	}
	return list, nil
}

func (r *contentRepository) AppendSyncLog(ctx context.Context, entry *model.SyncLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
