package udio

import (
	"encoding/json"
	"slices"
	"strings"

	"cryogon/rizumu-udio/models"

	"github.com/samber/lo"
)

// Sort keys understood by the search endpoint.
const (
	SortNewest   = "newest"
	SortTrending = "trending"
	SortLikes    = "likes"
	SortPlays    = "plays"
)

const DefaultMaxAgeInHours = 168

// normalize fills in defaults and puts the tag set into a canonical order.
func normalize(q models.Query, pageSize int) models.Query {
	q.Term = strings.TrimSpace(q.Term)
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if q.MaxAgeInHours <= 0 {
		q.MaxAgeInHours = DefaultMaxAgeInHours
	}
	if q.PageSize <= 0 {
		q.PageSize = pageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}

	tags := lo.Uniq(lo.FilterMap(q.Tags, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	}))
	slices.Sort(tags)
	q.Tags = tags
	return q
}

// cacheKey serializes a normalized query. Field order is fixed by the struct.
func cacheKey(q models.Query) string {
	b, _ := json.Marshal(struct {
		Term     string   `json:"t"`
		Tags     []string `json:"g"`
		Sort     string   `json:"s"`
		MaxAge   int      `json:"a"`
		UserID   string   `json:"u"`
		Page     int      `json:"p"`
		PageSize int      `json:"n"`
	}{q.Term, q.Tags, q.Sort, q.MaxAgeInHours, q.UserID, q.Page, q.PageSize})
	return string(b)
}

type searchQuery struct {
	Sort          string   `json:"sort"`
	MaxAgeInHours int      `json:"maxAgeInHours"`
	SearchTerm    string   `json:"searchTerm"`
	ContainsTags  []string `json:"containsTags,omitempty"`
	UserID        string   `json:"userId,omitempty"`
}

type searchRequest struct {
	SearchQuery searchQuery `json:"searchQuery"`
	PageParam   int         `json:"pageParam"`
	PageSize    int         `json:"pageSize"`
}

func newSearchRequest(q models.Query) searchRequest {
	return searchRequest{
		SearchQuery: searchQuery{
			Sort:          q.Sort,
			MaxAgeInHours: q.MaxAgeInHours,
			SearchTerm:    q.Term,
			ContainsTags:  q.Tags,
			UserID:        q.UserID,
		},
		PageParam: q.Page,
		PageSize:  q.PageSize,
	}
}
