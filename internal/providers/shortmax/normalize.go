package shortmax

import (
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/providers/common"
)

// Normalize maps one raw videoList entry to a ContentInput. ShortMax ids
// arrive as JSON numbers on the legacy feed and strings on the current one,
// which FirstString absorbs.
func Normalize(raw map[string]any) domain.ContentInput {
	return domain.ContentInput{
		ProviderContentID: common.FirstString(raw, "videoId", "video_id", "id"),
		Title:             common.FirstString(raw, "videoName", "title", "name"),
		Description:       common.CleanText(common.FirstString(raw, "brief", "introduce", "description")),
		PosterURL:         common.FirstString(raw, "coverImg", "coverUrl", "poster"),
		EpisodeCount:      common.FirstInt(raw, "totalEpisode", "episodeNum", "total"),
		Tags:              common.StringList(raw, "labels", "tagList", "tags"),
		Region:            common.FirstString(raw, "regionCode", "region", "country"),
		ContentType:       common.FirstString(raw, "videoType", "typeName", "type"),
		Year:              common.FirstInt(raw, "onlineYear", "year"),
		IsFinished:        common.FirstBool(raw, "isComplete", "finished", "isEnd"),
		IsUpcoming:        common.FirstBool(raw, "isPre", "upcoming"),
	}
}
