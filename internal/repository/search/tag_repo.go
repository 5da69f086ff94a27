package search

import (
	"context"
	"fmt"
	"time"

	"github.com/devring/devring-backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// TagRepository executes tag searches. Tags have a single substring mode
// ordered by popularity; there is no degraded variant to fall back to.
type TagRepository interface {
	Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.TagHit], error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a tag search executor
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

type tagRow struct {
	ID         string
	Name       string
	PostsCount int64
	CreatedAt  time.Time
}

func (r *tagRepository) Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.TagHit], error) {
	base := r.db.WithContext(ctx).Model(&domain.Tag{}).
		Where("name ILIKE ?", Pattern(q.Text)).
		Session(&gorm.Session{})

	var (
		rows  []tagRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := base.WithContext(gctx).
			Select("id, name, posts_count, created_at").
			Order("posts_count DESC, id DESC").
			Offset(q.Offset()).Limit(q.Limit).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("tags query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("tags count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := make([]domain.TagHit, 0, len(rows))
	for i, row := range rows {
		hits = append(hits, domain.TagHit{
			ID:         row.ID,
			Name:       row.Name,
			PostsCount: row.PostsCount,
			Rank:       float64(q.Offset() + i + 1),
			CreatedAt:  row.CreatedAt,
		})
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}
