package search

import (
	"github.com/devring/devring-backend/internal/domain"
	"gorm.io/gorm"
)

// applyCommonFilters adds the author, date-range and publication-visibility
// clauses shared by the post and activity executors. Soft-deleted rows are
// excluded by gorm's DeletedAt handling on the models. Every clause binds
// its value as a parameter; user input never reaches the SQL text.
func applyCommonFilters(db *gorm.DB, q *domain.SearchQuery) *gorm.DB {
	if q.AuthorID != "" {
		db = db.Where("author_id = ?", q.AuthorID)
	}
	if q.DateFrom != nil {
		db = db.Where(effectiveTime+" >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where(effectiveTime+" <= ?", *q.DateTo)
	}
	if !q.IncludeDrafts {
		db = db.Where("published = ?", true)
	}
	return db
}

// applyTagFilter restricts posts to those carrying every requested tag,
// not any of them: the grouped distinct count must equal the number of
// requested tags.
func applyTagFilter(db *gorm.DB, q *domain.SearchQuery) *gorm.DB {
	if len(q.TagIDs) == 0 {
		return db
	}
	return db.Where(
		"id IN (SELECT post_id FROM post_tags WHERE tag_id IN ? GROUP BY post_id HAVING COUNT(DISTINCT tag_id) = ?)",
		q.TagIDs, len(q.TagIDs),
	)
}
