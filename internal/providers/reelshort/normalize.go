package reelshort

import (
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/providers/common"
)

// Normalize maps one raw list entry to a ContentInput. ReelShort has shipped
// at least two payload shapes (drama_id vs id, cover_url vs thumbnail), so
// every field reads through an ordered candidate chain.
func Normalize(raw map[string]any) domain.ContentInput {
	return domain.ContentInput{
		ProviderContentID: common.FirstString(raw, "drama_id", "dramaId", "id"),
		Title:             common.FirstString(raw, "title", "name", "drama_name"),
		Description:       common.CleanText(common.FirstString(raw, "desc", "description", "summary")),
		PosterURL:         common.FirstString(raw, "cover_url", "thumbnail", "cover"),
		EpisodeCount:      common.FirstInt(raw, "episode_total", "episode_count", "episodes"),
		Tags:              common.StringList(raw, "tag_list", "tags", "genres"),
		Region:            common.FirstString(raw, "area", "region", "country"),
		ContentType:       common.FirstString(raw, "category", "type", "content_type"),
		Year:              common.FirstInt(raw, "release_year", "year"),
		IsFinished:        common.FirstBool(raw, "is_end", "is_finished", "finished"),
		IsUpcoming:        common.FirstBool(raw, "is_upcoming", "coming_soon"),
	}
}
