package model

import (
	"time"

	"dramastream/catalogservice/internal/domain"
)

// Content is the canonical reconciled record for one title. One row per
// (provider, provider_content_id); repeated syncs merge into it, they
// never blind-overwrite.
type Content struct {
	ID                uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider          string               `gorm:"type:varchar(32);not null;uniqueIndex:uq_provider_content,priority:1;index" json:"provider"`
	ProviderContentID string               `gorm:"type:varchar(64);not null;uniqueIndex:uq_provider_content,priority:2" json:"providerContentId"`
	Title             string               `gorm:"type:varchar(256);not null" json:"title"`
	AlternateTitles   []string             `gorm:"serializer:json" json:"alternateTitles,omitempty"`
	Description       string               `gorm:"type:text" json:"description,omitempty"`
	PosterURL         string               `gorm:"type:varchar(512)" json:"posterUrl,omitempty"`
	EpisodeCount      int                  `json:"episodeCount,omitempty"`
	Tags              []string             `gorm:"serializer:json" json:"tags,omitempty"`
	Region            string               `gorm:"type:varchar(32)" json:"region,omitempty"`
	ContentType       string               `gorm:"type:varchar(32)" json:"contentType,omitempty"`
	Year              int                  `json:"year,omitempty"`
	IsFinished        bool                 `json:"isFinished"`
	IsUpcoming        bool                 `json:"isUpcoming"`
	Status            domain.ContentStatus `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	FetchedFrom       domain.FetchOrigin   `gorm:"type:varchar(16);not null;default:search" json:"fetchedFrom"`
	PopularityScore   float64              `json:"popularityScore"`
	ViewCount         int64                `json:"viewCount"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Content) TableName() string { return "contents" }

// ContentLanguage is one subtitle or dubbing track of a content row.
// Rows are owned by their content and deleted with it.
type ContentLanguage struct {
	ID                 uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID          uint                `gorm:"not null;index;uniqueIndex:uq_content_lang,priority:1" json:"contentId"`
	Type               domain.LanguageType `gorm:"type:varchar(16);not null;uniqueIndex:uq_content_lang,priority:2" json:"type"`
	LanguageCode       string              `gorm:"type:varchar(16);not null;uniqueIndex:uq_content_lang,priority:3" json:"languageCode"`
	ProviderLanguageID string              `gorm:"type:varchar(64)" json:"providerLanguageId,omitempty"`
	IsDefault          bool                `json:"isDefault"`
	Source             string              `gorm:"type:varchar(32)" json:"source,omitempty"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"createdAt"`
}

func (ContentLanguage) TableName() string { return "content_languages" }

// SyncLog is the append-only ingestion audit trail. The serving path
// never reads it.
type SyncLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider  string    `gorm:"type:varchar(32);not null;index" json:"provider"`
	BatchID   string    `gorm:"type:varchar(64);not null" json:"batchId"`
	Origin    string    `gorm:"type:varchar(16)" json:"origin"`
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (SyncLog) TableName() string { return "sync_logs" }
