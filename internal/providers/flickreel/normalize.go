package flickreel

import (
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/providers/common"
)

// Normalize maps one raw result entry to a ContentInput. FlickReel nests the
// poster under several historical keys and reports completion as "completed"
// or the older "finale" flag.
func Normalize(raw map[string]any) domain.ContentInput {
	return domain.ContentInput{
		ProviderContentID: common.FirstString(raw, "contentId", "content_id", "id"),
		Title:             common.FirstString(raw, "title", "displayTitle", "name"),
		Description:       common.CleanText(common.FirstString(raw, "synopsis", "overview", "description")),
		PosterURL:         common.FirstString(raw, "posterUrl", "poster_url", "image"),
		EpisodeCount:      common.FirstInt(raw, "episodeCount", "episode_count", "numEpisodes"),
		Tags:              common.StringList(raw, "genres", "tags", "keywords"),
		Region:            common.FirstString(raw, "market", "region"),
		ContentType:       common.FirstString(raw, "format", "contentType", "type"),
		Year:              common.FirstInt(raw, "releaseYear", "release_year", "year"),
		IsFinished:        common.FirstBool(raw, "completed", "finale", "isFinished"),
		IsUpcoming:        common.FirstBool(raw, "upcoming", "preRelease"),
	}
}
