package search

import (
	"context"
	"fmt"
	"time"

	"github.com/devring/devring-backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// UserRepository executes user searches. SearchTrigram needs the pg_trgm
// extension; when it is missing the query errors and the fallback wrapper
// routes to SearchLike.
type UserRepository interface {
	SearchTrigram(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error)
	SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error)
}

type userRepository struct {
	db                  *gorm.DB
	similarityThreshold float64
}

// NewUserRepository creates a user search executor. similarityThreshold
// cuts off trivial trigram overlaps.
func NewUserRepository(db *gorm.DB, similarityThreshold float64) UserRepository {
	return &userRepository{db: db, similarityThreshold: similarityThreshold}
}

type userRow struct {
	ID         string
	Name       string
	Bio        *string
	AvatarKey  *string
	Similarity float64
	CreatedAt  time.Time
}

func (r *userRepository) SearchTrigram(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error) {
	sim := TrigramSimilarity(q.Text)
	base := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("(?) > ?", sim, r.similarityThreshold).
		Session(&gorm.Session{})

	var (
		rows  []userRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db := base.WithContext(gctx).
			Select("id, name, bio, avatar_key, created_at, (?) AS similarity", sim)
		if q.Sort == domain.SortLatest {
			db = db.Order("created_at DESC, id DESC")
		} else {
			db = db.Order("similarity DESC, id DESC")
		}
		if err := db.Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
			return fmt.Errorf("users trigram query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("users count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := make([]domain.UserHit, 0, len(rows))
	for _, row := range rows {
		hit := toUserHit(row)
		hit.Rank = row.Similarity
		hits = append(hits, hit)
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}

func (r *userRepository) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error) {
	pattern := Pattern(q.Text)
	base := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("(name ILIKE ? OR COALESCE(bio, '') ILIKE ?)", pattern, pattern).
		Session(&gorm.Session{})

	var (
		rows  []userRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		db := base.WithContext(gctx).
			Select("id, name, bio, avatar_key, created_at")
		if q.Sort == domain.SortLatest {
			db = db.Order("created_at DESC, id DESC")
		} else {
			db = db.Order("name ASC, id DESC")
		}
		if err := db.Offset(q.Offset()).Limit(q.Limit).Scan(&rows).Error; err != nil {
			return fmt.Errorf("users pattern query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := base.WithContext(gctx).Count(&total).Error; err != nil {
			return fmt.Errorf("users count query: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Substring fallback carries no similarity score: 0 across the board,
	// rank is the name-sorted ordinal position.
	hits := make([]domain.UserHit, 0, len(rows))
	for i, row := range rows {
		hit := toUserHit(row)
		hit.Similarity = 0
		hit.Rank = float64(q.Offset() + i + 1)
		hits = append(hits, hit)
	}
	return domain.NewSearchBucket(hits, total, q.Page, q.Limit), nil
}

func toUserHit(row userRow) domain.UserHit {
	hit := domain.UserHit{
		ID:         row.ID,
		Name:       row.Name,
		Similarity: row.Similarity,
		CreatedAt:  row.CreatedAt,
	}
	if row.Bio != nil {
		hit.Bio = *row.Bio
	}
	if row.AvatarKey != nil {
		hit.AvatarKey = *row.AvatarKey
	}
	return hit
}
