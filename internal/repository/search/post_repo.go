package search

import (
	"context"
	"fmt"
	"time"

	"github.com/devring/devring-backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// PostRepository executes ranked post searches. SearchTS is the full-text
// primary; SearchLike is the pattern-match degraded mode.
type PostRepository interface {
	SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error)
	SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error)
}

type postRepository struct {
	db           *gorm.DB
	halfLifeDays float64
}

// NewPostRepository creates a post search executor. halfLifeDays tunes the
// recency decay applied to the full-text rank.
func NewPostRepository(db *gorm.DB, halfLifeDays float64) PostRepository {
	return &postRepository{db: db, halfLifeDays: halfLifeDays}
}

type postRow struct {
	ID          string
	Title       string
	AuthorID    string
	Rank        float64
	CreatedAt   time.Time
	PublishedAt *time.Time
}

func (r *postRepository) base(ctx context.Context, q *domain.SearchQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&domain.Post{})
	db = applyCommonFilters(db, q)
	db = applyTagFilter(db, q)
	return db
}

func (r *postRepository) SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error) {
	base := r.base(ctx, q).Where(TSMatch(q.Text)).Session(&gorm.Session{})

	var (
		rows  []postRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db := base.WithContext(gctx).
			Select("id, title, author_id, created_at, published_at, (?) AS rank", TSRank(q.Text, r.halfLifeDays))
		if q.Sort == domain.SortLatest {
			db = db.Order(OrderLatest())
		} else {
			db = db.Order(OrderRelevance())
		}
		if err := db.Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
			return fmt.Errorf("posts ranked query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("posts count query: %w", err)
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

func (r *postRepository) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error) {
	pattern := Pattern(q.Text)
	base := r.base(ctx, q).
		Where("(title ILIKE ? OR content ILIKE ?)", pattern, pattern).
		Session(&gorm.Session{})

	var (
		rows  []postRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := base.WithContext(gctx).
			Select("id, title, author_id, created_at, published_at").
			Order(OrderLatest()).
			Offset(q.Offset()).Limit(q.Limit).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("posts pattern query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("posts count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// No continuous relevance score in pattern mode: rank is the ordinal
	// result position.
	for i := range rows {
		rows[i].Rank = float64(q.Offset() + i + 1)
	}

	hits, err := r.toHits(ctx, rows)
	if err != nil {
		return nil, err
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}

func (r *postRepository) toHits(ctx context.Context, rows []postRow) ([]domain.PostHit, error) {
	ids := make([]string, 0, len(rows))
	authorIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		authorIDs = append(authorIDs, row.AuthorID)
	}

	authors, err := resolveAuthors(ctx, r.db, authorIDs)
	if err != nil {
		return nil, err
	}
	tags, err := resolvePostTags(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.PostHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, domain.PostHit{
			ID:          row.ID,
			Title:       row.Title,
			Rank:        row.Rank,
			CreatedAt:   row.CreatedAt,
			PublishedAt: row.PublishedAt,
			Author:      authors[row.AuthorID],
			Tags:        tags[row.ID],
		})
	}
	return hits, nil
}
