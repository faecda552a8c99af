package utils

import (
	"net/url"
	"strconv"
)

func BuildNotesGenerationKey(userID int64) string {
	return "notes:gen:v1:user=" + strconv.FormatInt(userID, 10)
}

// BuildNotesListCacheKey scopes a cached read to a user and a generation.
// Filter values are query-escaped so a tag can never collide with a keyword.
func BuildNotesListCacheKey(userID, gen int64, tag, keyword string) string {
	q := url.Values{}
	q.Set("tag", tag)
	q.Set("q", keyword)

	return "notes:list:v1:user=" + strconv.FormatInt(userID, 10) +
		":gen=" + strconv.FormatInt(gen, 10) +
		":" + q.Encode()
}
