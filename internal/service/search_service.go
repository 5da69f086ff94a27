package service

import (
	"context"
	"fmt"
	"time"

	"github.com/devring/devring-backend/internal/domain"
	"github.com/devring/devring-backend/internal/repository/search"
	pkgcache "github.com/devring/devring-backend/pkg/cache"
	pkglogger "github.com/devring/devring-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Unified search requests by requested type",
		},
		[]string{"type"},
	)

	searchEntityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_entity_duration_seconds",
			Help:    "Per-entity search execution time",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"entity"},
	)
)

// AvatarSigner resolves private avatar storage keys into signed URLs in
// one batched call.
type AvatarSigner interface {
	SignURLs(ctx context.Context, keys []string) (map[string]string, error)
}

// SearchOptions tunes the aggregator
type SearchOptions struct {
	SlowQueryThreshold time.Duration
	CacheTTL           time.Duration
}

// SearchService aggregates the four entity executors into one unified,
// paginated response. Stateless per request; safe for concurrent use.
type SearchService struct {
	posts      search.PostRepository
	activities search.ActivityRepository
	users      search.UserRepository
	tags       search.TagRepository
	signer     AvatarSigner
	cache      pkgcache.Service
	opts       SearchOptions
}

// NewSearchService creates a new SearchService. signer and cache may be
// nil; avatar URLs stay unsigned and caching is skipped.
func NewSearchService(
	posts search.PostRepository,
	activities search.ActivityRepository,
	users search.UserRepository,
	tags search.TagRepository,
	signer AvatarSigner,
	cache pkgcache.Service,
	opts SearchOptions,
) *SearchService {
	return &SearchService{
		posts:      posts,
		activities: activities,
		users:      users,
		tags:       tags,
		signer:     signer,
		cache:      cache,
		opts:       opts,
	}
}

// Search normalizes the raw query, fans out to all four entity executors
// concurrently and merges their buckets. Any executor error that survives
// its own fallback fails the whole response.
func (s *SearchService) Search(ctx context.Context, raw domain.RawSearchQuery) (*domain.UnifiedResult, error) {
	q, err := domain.NormalizeSearchQuery(raw)
	if err != nil {
		return nil, err
	}
	searchRequestsTotal.WithLabelValues(string(q.Type)).Inc()

	if res, ok := s.cachedResult(ctx, q); ok {
		return res, nil
	}

	postsFn := withFallback(s.posts.SearchTS, s.posts.SearchLike, "posts")
	activitiesFn := withFallback(s.activities.SearchTS, s.activities.SearchLike, "activities")
	usersFn := withFallback(s.users.SearchTrigram, s.users.SearchLike, "users")

	var (
		postBucket     *domain.SearchBucket[domain.PostHit]
		activityBucket *domain.SearchBucket[domain.ActivityHit]
		userBucket     *domain.SearchBucket[domain.UserHit]
		tagBucket      *domain.SearchBucket[domain.TagHit]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		postBucket, err = runEntity(gctx, "posts", s.opts.SlowQueryThreshold, q.ForEntity(domain.SearchTypePosts), postsFn)
		return err
	})
	g.Go(func() error {
		var err error
		activityBucket, err = runEntity(gctx, "activities", s.opts.SlowQueryThreshold, q.ForEntity(domain.SearchTypeActivities), activitiesFn)
		return err
	})
	g.Go(func() error {
		var err error
		userBucket, err = runEntity(gctx, "users", s.opts.SlowQueryThreshold, q.ForEntity(domain.SearchTypeUsers), usersFn)
		return err
	})
	g.Go(func() error {
		var err error
		tagBucket, err = runEntity(gctx, "tags", s.opts.SlowQueryThreshold, q.ForEntity(domain.SearchTypeTags), s.tags.Search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Entities queried only for their count: drop the single placeholder
	// row, keep the total, report the caller's page window.
	postBucket = shapeBucket(q, domain.SearchTypePosts, postBucket)
	activityBucket = shapeBucket(q, domain.SearchTypeActivities, activityBucket)
	userBucket = shapeBucket(q, domain.SearchTypeUsers, userBucket)
	tagBucket = shapeBucket(q, domain.SearchTypeTags, tagBucket)

	s.signAvatars(ctx, userBucket)

	res := &domain.UnifiedResult{
		Query:        q.Text,
		Type:         q.Type,
		Page:         q.Page,
		Limit:        q.Limit,
		OverallTotal: postBucket.Total + activityBucket.Total + userBucket.Total + tagBucket.Total,
		Posts:        postBucket,
		Activities:   activityBucket,
		Users:        userBucket,
		Tags:         tagBucket,
	}

	s.storeCached(ctx, q, res)
	return res, nil
}

// runEntity times one executor call, feeding the duration histogram and
// the slow-query warning log.
func runEntity[T any](ctx context.Context, entity string, slow time.Duration, q *domain.SearchQuery, fn searchFunc[T]) (*domain.SearchBucket[T], error) {
	start := time.Now()
	bucket, err := fn(ctx, q)
	elapsed := time.Since(start)
	searchEntityDuration.WithLabelValues(entity).Observe(elapsed.Seconds())
	if slow > 0 && elapsed > slow {
		pkglogger.GetLogger().Warn().
			Str("entity", entity).
			Dur("elapsed", elapsed).
			Str("query", q.Text).
			Msg("slow search query")
	}
	return bucket, err
}

// shapeBucket keeps the selected entity's bucket untouched and reduces a
// count-only bucket to its total under the requested page window.
func shapeBucket[T any](q *domain.SearchQuery, t domain.SearchType, b *domain.SearchBucket[T]) *domain.SearchBucket[T] {
	if q.Type == domain.SearchTypeAll || q.Type == t {
		return b
	}
	return domain.NewSearchBucket[T](nil, b.Total, q.Page, q.Limit)
}

// signAvatars resolves signed URLs for the user bucket's avatar keys in a
// single batched signer call. Signing failure degrades to unsigned
// references rather than failing the aggregated response.
func (s *SearchService) signAvatars(ctx context.Context, bucket *domain.SearchBucket[domain.UserHit]) {
	if s.signer == nil || len(bucket.Items) == 0 {
		return
	}

	keys := make([]string, 0, len(bucket.Items))
	for _, hit := range bucket.Items {
		if hit.AvatarKey != "" {
			keys = append(keys, hit.AvatarKey)
		}
	}
	if len(keys) == 0 {
		return
	}

	urls, err := s.signer.SignURLs(ctx, keys)
	if err != nil {
		pkglogger.GetLogger().Warn().Err(err).Msg("avatar url signing failed")
		return
	}
	for i := range bucket.Items {
		if url, ok := urls[bucket.Items[i].AvatarKey]; ok {
			bucket.Items[i].AvatarURL = url
		}
	}
}

// Cached responses are only served to viewers without draft visibility;
// a privileged viewer's result must never leak into the shared cache.
func (s *SearchService) cacheable(q *domain.SearchQuery) bool {
	return s.cache != nil && s.cache.IsAvailable() && s.opts.CacheTTL > 0 && !q.IncludeDrafts
}

func (s *SearchService) cachedResult(ctx context.Context, q *domain.SearchQuery) (*domain.UnifiedResult, bool) {
	if !s.cacheable(q) {
		return nil, false
	}
	var res domain.UnifiedResult
	if err := s.cache.Get(ctx, cacheKey(q), &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (s *SearchService) storeCached(ctx context.Context, q *domain.SearchQuery, res *domain.UnifiedResult) {
	if !s.cacheable(q) {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(q), res, s.opts.CacheTTL); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Msg("search cache write failed")
	}
}

func cacheKey(q *domain.SearchQuery) string {
	var from, to int64
	if q.DateFrom != nil {
		from = q.DateFrom.Unix()
	}
	if q.DateTo != nil {
		to = q.DateTo.Unix()
	}
	return fmt.Sprintf("%s%s:%s:%s:%d:%d:%s:%v:%d:%d",
		pkgcache.PrefixSearch, q.Type, q.Sort, q.Text, q.Page, q.Limit, q.AuthorID, q.TagIDs, from, to)
}
