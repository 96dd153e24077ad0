package ingest

import (
	"sort"
	"strings"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/model"
)

// merge applies the field-by-field merge policy to an existing row.
// A stored value is only replaced by a better one; populated fields are
// never downgraded to empty. Returns whether anything changed.
func merge(existing *model.Content, in domain.ContentInput) bool {
	changed := false

	if in.HasUsableTitle() {
		incomingTitle := strings.TrimSpace(in.Title)
		if !storedTitleUsable(existing.Title) {
			existing.Title = incomingTitle
			changed = true
		} else if !strings.EqualFold(existing.Title, incomingTitle) {
			// Two usable but different titles: keep the stored one and
			// remember the other as an alternate.
			if appendUnique(&existing.AlternateTitles, incomingTitle) {
				changed = true
			}
		}
	}

	if existing.Description == "" && strings.TrimSpace(in.Description) != "" {
		existing.Description = strings.TrimSpace(in.Description)
		changed = true
	}

	if existing.PosterURL == "" && strings.TrimSpace(in.PosterURL) != "" {
		existing.PosterURL = strings.TrimSpace(in.PosterURL)
		changed = true
	}

	// Episode counts are monotonically non-decreasing upstream; a lower
	// incoming count is stale data, not a correction.
	if in.EpisodeCount > existing.EpisodeCount {
		existing.EpisodeCount = in.EpisodeCount
		changed = true
	}

	for _, tag := range in.Tags {
		if appendUnique(&existing.Tags, tag) {
			changed = true
		}
	}

	if existing.Region == "" && strings.TrimSpace(in.Region) != "" {
		existing.Region = strings.TrimSpace(in.Region)
		changed = true
	}
	if existing.ContentType == "" && strings.TrimSpace(in.ContentType) != "" {
		existing.ContentType = strings.TrimSpace(in.ContentType)
		changed = true
	}
	if existing.Year == 0 && in.Year > 0 {
		existing.Year = in.Year
		changed = true
	}

	if in.IsFinished && !existing.IsFinished {
		existing.IsFinished = true
		changed = true
	}
	if existing.IsUpcoming && !in.IsUpcoming {
		existing.IsUpcoming = false
		changed = true
	}

	return changed
}

func storedTitleUsable(title string) bool {
	trimmed := strings.TrimSpace(title)
	return trimmed != "" && !strings.EqualFold(trimmed, domain.PlaceholderTitle)
}

// appendUnique adds value to set if absent (case-insensitive), keeping
// the slice sorted so repeated merges stay deterministic.
func appendUnique(set *[]string, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	for _, existing := range *set {
		if strings.EqualFold(existing, trimmed) {
			return false
		}
	}
	*set = append(*set, trimmed)
	sort.Strings(*set)
	return true
}

// newContent builds a fresh row from a normalized input.
func newContent(provider string, in domain.ContentInput, origin domain.FetchOrigin, status domain.ContentStatus) *model.Content {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = domain.PlaceholderTitle
	}
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		appendUnique(&tags, tag)
	}
	return &model.Content{
		Provider:          provider,
		ProviderContentID: strings.TrimSpace(in.ProviderContentID),
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		PosterURL:         strings.TrimSpace(in.PosterURL),
		EpisodeCount:      in.EpisodeCount,
		Tags:              tags,
		Region:            strings.TrimSpace(in.Region),
		ContentType:       strings.TrimSpace(in.ContentType),
		Year:              in.Year,
		IsFinished:        in.IsFinished,
		IsUpcoming:        in.IsUpcoming,
		Status:            status,
		FetchedFrom:       origin,
	}
}
