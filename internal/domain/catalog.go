package domain

import "strings"

// ContentStatus controls visibility of a canonical record on read paths.
type ContentStatus string

const (
	StatusActive  ContentStatus = "active"
	StatusHidden  ContentStatus = "hidden"
	StatusRemoved ContentStatus = "removed"
)

// FetchOrigin records which surface an ingestion batch came from.
type FetchOrigin string

const (
	OriginTrending FetchOrigin = "trending"
	OriginSearch   FetchOrigin = "search"
	OriginHome     FetchOrigin = "home"
	OriginForYou   FetchOrigin = "foryou"
)

type LanguageType string

const (
	LanguageSubtitle LanguageType = "subtitle"
	LanguageDubbing  LanguageType = "dubbing"
)

// PlaceholderTitle is what several upstreams emit when a record has no
// usable title. It never beats a real title during a merge.
const PlaceholderTitle = "Unknown Title"

// ContentInput is the normalized shape every provider adapter produces.
// It carries no identity beyond the provider-scoped id and is never
// persisted directly.
type ContentInput struct {
	ProviderContentID string   `json:"providerContentId"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	PosterURL         string   `json:"posterUrl,omitempty"`
	EpisodeCount      int      `json:"episodeCount,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Region            string   `json:"region,omitempty"`
	ContentType       string   `json:"contentType,omitempty"`
	Year              int      `json:"year,omitempty"`
	IsFinished        bool     `json:"isFinished,omitempty"`
	IsUpcoming        bool     `json:"isUpcoming,omitempty"`
}

// HasUsableTitle reports whether the input carries a title worth storing
// over an existing one.
func (c ContentInput) HasUsableTitle() bool {
	title := strings.TrimSpace(c.Title)
	return title != "" && !strings.EqualFold(title, PlaceholderTitle)
}

type SearchRequest struct {
	Query string
	Limit int
	Page  int
}

// SearchItem is one provider hit, tagged with its origin provider.
type SearchItem struct {
	Provider string       `json:"provider"`
	Input    ContentInput `json:"item"`
}

type ProviderStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type SearchResponse struct {
	Query     string           `json:"query"`
	Items     []SearchItem     `json:"items"`
	Providers []ProviderStatus `json:"providers"`
	ElapsedMS int64            `json:"elapsedMs"`
	Limit     int              `json:"limit"`
	Page      int              `json:"page"`
}

type ProviderInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

type ProviderDiagnostics struct {
	Name                string `json:"name"`
	Label               string `json:"label"`
	Enabled             bool   `json:"enabled"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	BlockedUntilUnix    int64  `json:"blockedUntilUnix,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	LastLatencyMS       int64  `json:"lastLatencyMs,omitempty"`
	TotalRequests       int64  `json:"totalRequests,omitempty"`
	TotalFailures       int64  `json:"totalFailures,omitempty"`
}

// Suggestion is one entry of the local-first suggest flow response.
type Suggestion struct {
	ID                uint   `json:"id,omitempty"`
	Provider          string `json:"provider"`
	ProviderContentID string `json:"providerContentId"`
	Title             string `json:"title"`
	PosterURL         string `json:"posterUrl,omitempty"`
	EpisodeCount      int    `json:"episodeCount,omitempty"`
	Local             bool   `json:"local"`
}

// IngestResult aggregates what one ingestion batch did. Individual item
// failures are counted as skipped, never raised.
type IngestResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// CorrectionResult reports the two-way partition of a provider-tag
// correction run: duplicates deleted vs. unique rows re-tagged.
type CorrectionResult struct {
	Deleted    int    `json:"deleted"`
	Updated    int    `json:"updated"`
	DeletedIDs []uint `json:"deletedIds,omitempty"`
	UpdatedIDs []uint `json:"updatedIds,omitempty"`
}

// CleanupRule selects which low-confidence records a purge targets.
type CleanupRule string

const (
	CleanupUnknownTitle CleanupRule = "unknownTitle"
	CleanupNoCover      CleanupRule = "noCover"
)

type CleanupResult struct {
	DeletedCount int    `json:"deletedCount"`
	IDs          []uint `json:"ids"`
}

// NormalizeOrigin maps arbitrary caller input onto a known fetch origin,
// defaulting to search (the least trusted surface).
func NormalizeOrigin(raw string) FetchOrigin {
	switch FetchOrigin(strings.ToLower(strings.TrimSpace(raw))) {
	case OriginTrending:
		return OriginTrending
	case OriginHome:
		return OriginHome
	case OriginForYou:
		return OriginForYou
	default:
		return OriginSearch
	}
}

// TrustedOrigin reports whether a batch from this surface may promote
// hidden rows to active.
func TrustedOrigin(origin FetchOrigin) bool {
	return origin == OriginTrending || origin == OriginHome
}
