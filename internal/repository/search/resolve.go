package search

import (
	"context"
	"fmt"

	"github.com/devring/devring-backend/internal/domain"
	"gorm.io/gorm"
)

// resolveAuthors loads author summaries for the distinct id set of a
// result page in a single IN query.
func resolveAuthors(ctx context.Context, db *gorm.DB, ids []string) (map[string]*domain.AuthorSummary, error) {
	out := make(map[string]*domain.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []domain.User
	if err := db.WithContext(ctx).Where("id IN ?", uniqueStrings(ids)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	for _, u := range users {
		summary := &domain.AuthorSummary{ID: u.ID, Name: u.Name}
		if u.AvatarKey != nil {
			summary.AvatarKey = *u.AvatarKey
		}
		out[u.ID] = summary
	}
	return out, nil
}

type postTagRow struct {
	PostID string
	Name   string
}

// resolvePostTags loads tag names for a page of post ids in one join query.
func resolvePostTags(ctx context.Context, db *gorm.DB, postIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []postTagRow
	err := db.WithContext(ctx).
		Table("post_tags").
		Select("post_tags.post_id AS post_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = post_tags.tag_id AND tags.deleted_at IS NULL").
		Where("post_tags.post_id IN ?", uniqueStrings(postIDs)).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolve post tags: %w", err)
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row.Name)
	}
	return out, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
