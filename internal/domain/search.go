package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/devring/devring-backend/internal/common"
)

// SearchType selects which entity buckets carry real items
type SearchType string

const (
	SearchTypeAll        SearchType = "all"
	SearchTypePosts      SearchType = "posts"
	SearchTypeActivities SearchType = "activities"
	SearchTypeUsers      SearchType = "users"
	SearchTypeTags       SearchType = "tags"
)

// SearchSort selects the ordering strategy
type SearchSort string

const (
	SortRelevance SearchSort = "relevance"
	SortLatest    SearchSort = "latest"
)

const (
	MinQueryLength = 1
	MaxQueryLength = 100
	DefaultPage    = 1
	DefaultLimit   = 10
	MaxLimit       = 10
)

// Sequences rejected outright: the query text feeds dynamic filter
// construction, so comment markers and statement terminators never pass.
var bannedSequences = []string{"--", "/*", "*/", ";"}

// RawSearchQuery holds parameters exactly as the route layer hands them
// over, before any validation or clamping.
type RawSearchQuery struct {
	Text          string
	Type          string
	Page          int
	Limit         int
	Sort          string
	AuthorID      string
	TagIDs        []string
	DateFrom      *time.Time
	DateTo        *time.Time
	IncludeDrafts bool
}

// SearchQuery is the normalized form. Constructed once per request via
// NormalizeSearchQuery and treated as read-only afterwards.
type SearchQuery struct {
	Text          string
	Type          SearchType
	Page          int
	Limit         int
	Sort          SearchSort
	AuthorID      string
	TagIDs        []string
	DateFrom      *time.Time
	DateTo        *time.Time
	IncludeDrafts bool
}

// NormalizeSearchQuery validates the query text and clamps every other
// parameter into its allowed range. Text violations are hard failures;
// out-of-range page/limit and unknown type/sort fall back to defaults.
func NormalizeSearchQuery(raw RawSearchQuery) (*SearchQuery, error) {
	text := strings.TrimSpace(raw.Text)
	if n := len([]rune(text)); n < MinQueryLength || n > MaxQueryLength {
		return nil, common.NewValidationError(
			fmt.Sprintf("query text must be between %d and %d characters", MinQueryLength, MaxQueryLength))
	}
	for _, seq := range bannedSequences {
		if strings.Contains(text, seq) {
			return nil, common.NewValidationError(
				fmt.Sprintf("query text contains forbidden sequence %q", seq))
		}
	}

	q := &SearchQuery{
		Text:          text,
		Type:          SearchTypeAll,
		Page:          raw.Page,
		Limit:         raw.Limit,
		Sort:          SortRelevance,
		AuthorID:      strings.TrimSpace(raw.AuthorID),
		DateFrom:      raw.DateFrom,
		DateTo:        raw.DateTo,
		IncludeDrafts: raw.IncludeDrafts,
	}

	switch SearchType(raw.Type) {
	case SearchTypePosts, SearchTypeActivities, SearchTypeUsers, SearchTypeTags:
		q.Type = SearchType(raw.Type)
	}
	switch SearchSort(raw.Sort) {
	case SortLatest:
		q.Sort = SortLatest
	}

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}

	for _, id := range raw.TagIDs {
		if id = strings.TrimSpace(id); id != "" {
			q.TagIDs = append(q.TagIDs, id)
		}
	}

	return q, nil
}

// Offset calculates the row offset for the current page
func (q *SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ForEntity returns the query an individual entity executor should run.
// The selected entity (or every entity under type=all) keeps the real
// page window; the others are queried with limit=1 page=1 so their totals
// stay accurate without fetching rows that would be discarded anyway.
func (q *SearchQuery) ForEntity(t SearchType) *SearchQuery {
	cp := *q
	if q.Type != SearchTypeAll && q.Type != t {
		cp.Page = 1
		cp.Limit = 1
	}
	return &cp
}

// AuthorSummary is the minimal author projection attached to hits
type AuthorSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarKey string `json:"avatar_key,omitempty"`
}

// PostHit is a single post in a search result page
type PostHit struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Rank        float64        `json:"rank"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Author      *AuthorSummary `json:"author,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

// ActivityHit is a single activity in a search result page
type ActivityHit struct {
	ID        string         `json:"id"`
	Body      string         `json:"body"`
	Rank      float64        `json:"rank"`
	CreatedAt time.Time      `json:"created_at"`
	Author    *AuthorSummary `json:"author,omitempty"`
}

// UserHit is a single user in a search result page. Similarity is the
// trigram score when the primary mode served the request, 0 under the
// substring fallback.
type UserHit struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio,omitempty"`
	Similarity float64   `json:"similarity"`
	Rank       float64   `json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
	AvatarKey  string    `json:"-"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
}

// TagHit is a single tag in a search result page
type TagHit struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PostsCount int64     `json:"posts_count"`
	Rank       float64   `json:"rank"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchBucket is one entity type's paginated slice of the unified response
type SearchBucket[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	HasMore bool  `json:"has_more"`
}

// NewSearchBucket builds a bucket with the has_more flag derived from the
// full match count, never from the page slice length.
func NewSearchBucket[T any](items []T, total int64, page, limit int) *SearchBucket[T] {
	if items == nil {
		items = []T{}
	}
	return &SearchBucket[T]{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: total > int64(page*limit),
	}
}

// UnifiedResult is the aggregated response across all four entities.
// OverallTotal sums every bucket's total regardless of the requested type.
type UnifiedResult struct {
	Query        string                     `json:"query"`
	Type         SearchType                 `json:"type"`
	Page         int                        `json:"page"`
	Limit        int                        `json:"limit"`
	OverallTotal int64                      `json:"overall_total"`
	Posts        *SearchBucket[PostHit]     `json:"posts"`
	Activities   *SearchBucket[ActivityHit] `json:"activities"`
	Users        *SearchBucket[UserHit]     `json:"users"`
	Tags         *SearchBucket[TagHit]      `json:"tags"`
}
