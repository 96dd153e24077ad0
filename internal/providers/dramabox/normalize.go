package dramabox

import (
	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/providers/common"
)

// Normalize maps one raw DramaBox record onto the common input shape.
// DramaBox deployments disagree on field names (bookId vs id, coverWap
// vs cover), so every field tries an ordered candidate chain and
// degrades to a zero value instead of failing.
func Normalize(raw map[string]any) domain.ContentInput {
	return domain.ContentInput{
		ProviderContentID: common.FirstString(raw, "bookId", "bookID", "id"),
		Title:             common.FirstString(raw, "bookName", "title", "name"),
		Description:       common.CleanText(common.FirstString(raw, "introduction", "intro", "description")),
		PosterURL:         common.FirstString(raw, "coverWap", "cover", "coverUrl", "poster"),
		EpisodeCount:      common.FirstInt(raw, "chapterCount", "episodeCount", "total"),
		Tags:              common.StringList(raw, "tags", "tagNames", "labels"),
		Region:            common.FirstString(raw, "country", "region"),
		ContentType:       common.FirstString(raw, "typeName", "bookType", "contentType"),
		Year:              common.FirstInt(raw, "publishYear", "year"),
		IsFinished:        common.FirstBool(raw, "finished", "isFinish", "isEnd"),
		IsUpcoming:        common.FirstBool(raw, "isUpcoming", "comingSoon"),
	}
}
