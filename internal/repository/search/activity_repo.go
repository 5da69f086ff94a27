package search

import (
	"context"
	"fmt"
	"time"

	"github.com/devring/devring-backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ActivityRepository executes ranked activity searches.
type ActivityRepository interface {
	SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error)
	SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error)
}

type activityRepository struct {
	db           *gorm.DB
	halfLifeDays float64
}

// NewActivityRepository creates an activity search executor. Activities
// use a shorter half-life than posts; they age out of relevance faster.
func NewActivityRepository(db *gorm.DB, halfLifeDays float64) ActivityRepository {
	return &activityRepository{db: db, halfLifeDays: halfLifeDays}
}

type activityRow struct {
	ID        string
	Body      string
	AuthorID  string
	Rank      float64
	CreatedAt time.Time
}

func (r *activityRepository) base(ctx context.Context, q *domain.SearchQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&domain.Activity{})
	return applyCommonFilters(db, q)
}

func (r *activityRepository) SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error) {
	base := r.base(ctx, q).Where(TSMatch(q.Text)).Session(&gorm.Session{})

	var (
		rows  []activityRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db := base.WithContext(gctx).
			Select("id, body, author_id, created_at, (?) AS rank", TSRank(q.Text, r.halfLifeDays))
		if q.Sort == domain.SortLatest {
			db = db.Order(OrderLatest())
		} else {
			db = db.Order(OrderRelevance())
		}
		if err := db.Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
			return fmt.Errorf("activities ranked query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("activities count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits, err := r.toHits(ctx, rows)
	if err != nil {
		return nil, err
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}

func (r *activityRepository) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error) {
	base := r.base(ctx, q).
		Where("body ILIKE ?", Pattern(q.Text)).
		Session(&gorm.Session{})

	var (
		rows  []activityRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := base.WithContext(gctx).
			Select("id, body, author_id, created_at").
			Order(OrderLatest()).
			Offset(q.Offset()).Limit(q.Limit).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("activities pattern query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("activities count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Rank = float64(q.Offset() + i + 1)
	}

	hits, err := r.toHits(ctx, rows)
	if err != nil {
		return nil, err
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}

func (r *activityRepository) toHits(ctx context.Context, rows []activityRow) ([]domain.ActivityHit, error) {
	authorIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		authorIDs = append(authorIDs, row.AuthorID)
	}
	authors, err := resolveAuthors(ctx, r.db, authorIDs)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.ActivityHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, domain.ActivityHit{
			ID:        row.ID,
			Body:      row.Body,
			Rank:      row.Rank,
			CreatedAt: row.CreatedAt,
			Author:    authors[row.AuthorID],
		})
	}
	return hits, nil
}
