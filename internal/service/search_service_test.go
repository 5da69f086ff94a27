package service

import (
	"context"
	"errors"
	"testing"

	"github.com/devring/devring-backend/internal/common"
	"github.com/devring/devring-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mock repositories ---

type mockPostRepo struct {
	mock.Mock
}

func (m *mockPostRepo) SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.PostHit]), args.Error(1)
}

func (m *mockPostRepo) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.PostHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.PostHit]), args.Error(1)
}

type mockActivityRepo struct {
	mock.Mock
}

func (m *mockActivityRepo) SearchTS(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.ActivityHit]), args.Error(1)
}

func (m *mockActivityRepo) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.ActivityHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.ActivityHit]), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) SearchTrigram(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.UserHit]), args.Error(1)
}

func (m *mockUserRepo) SearchLike(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.UserHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.UserHit]), args.Error(1)
}

type mockTagRepo struct {
	mock.Mock
}

func (m *mockTagRepo) Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchBucket[domain.TagHit], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchBucket[domain.TagHit]), args.Error(1)
}

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) SignURLs(ctx context.Context, keys []string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// --- Helpers ---

type serviceMocks struct {
	posts      *mockPostRepo
	activities *mockActivityRepo
	users      *mockUserRepo
	tags       *mockTagRepo
}

func newTestService(signer AvatarSigner) (*SearchService, *serviceMocks) {
	m := &serviceMocks{
		posts:      new(mockPostRepo),
		activities: new(mockActivityRepo),
		users:      new(mockUserRepo),
		tags:       new(mockTagRepo),
	}
	svc := NewSearchService(m.posts, m.activities, m.users, m.tags, signer, nil, SearchOptions{})
	return svc, m
}

func countOnly(limit int) interface{} {
	return mock.MatchedBy(func(q *domain.SearchQuery) bool {
		return q.Limit == limit && q.Page == 1
	})
}

func emptyBucket[T any](page, limit int) *domain.SearchBucket[T] {
	return domain.NewSearchBucket[T](nil, 0, page, limit)
}

// --- Tests ---

func TestSearch_ValidationFailsBeforeDatastore(t *testing.T) {
	svc, m := newTestService(nil)

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "a;b"})

	assert.Nil(t, res)
	assert.True(t, common.IsValidationError(err))
	// no datastore call of any kind was made
	m.posts.AssertNotCalled(t, "SearchTS", mock.Anything, mock.Anything)
	m.posts.AssertNotCalled(t, "SearchLike", mock.Anything, mock.Anything)
	m.activities.AssertNotCalled(t, "SearchTS", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "SearchTrigram", mock.Anything, mock.Anything)
	m.tags.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearch_TypePostsPublishedWindow(t *testing.T) {
	svc, m := newTestService(nil)

	// 12 published posts match; the page holds 10 of them.
	items := make([]domain.PostHit, 10)
	for i := range items {
		items[i] = domain.PostHit{ID: string(rune('a' + i)), Rank: float64(10 - i)}
	}
	m.posts.On("SearchTS", mock.Anything, mock.MatchedBy(func(q *domain.SearchQuery) bool {
		return q.Page == 1 && q.Limit == 10 && !q.IncludeDrafts
	})).Return(domain.NewSearchBucket(items, 12, 1, 10), nil)

	// non-selected entities are queried with limit=1 but keep real totals
	m.activities.On("SearchTS", mock.Anything, countOnly(1)).
		Return(domain.NewSearchBucket([]domain.ActivityHit{{ID: "act1"}}, 3, 1, 1), nil)
	m.users.On("SearchTrigram", mock.Anything, countOnly(1)).
		Return(domain.NewSearchBucket([]domain.UserHit{{ID: "u1"}}, 4, 1, 1), nil)
	m.tags.On("Search", mock.Anything, countOnly(1)).
		Return(domain.NewSearchBucket([]domain.TagHit{{ID: "t1"}}, 5, 1, 1), nil)

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{
		Text: "react", Type: "posts", Page: 1, Limit: 10,
	})

	assert.NoError(t, err)
	assert.Len(t, res.Posts.Items, 10)
	assert.Equal(t, int64(12), res.Posts.Total)
	assert.True(t, res.Posts.HasMore)

	// suppressed buckets: no items, true totals, caller's page window
	assert.Empty(t, res.Activities.Items)
	assert.Equal(t, int64(3), res.Activities.Total)
	assert.Empty(t, res.Users.Items)
	assert.Equal(t, int64(4), res.Users.Total)
	assert.Empty(t, res.Tags.Items)
	assert.Equal(t, int64(5), res.Tags.Total)
	assert.Equal(t, 10, res.Tags.Limit)

	// overall total sums every bucket regardless of requested type
	assert.Equal(t, int64(24), res.OverallTotal)
	m.posts.AssertExpectations(t)
	m.activities.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.tags.AssertExpectations(t)
}

func TestSearch_AllTypeZeroMatches(t *testing.T) {
	svc, m := newTestService(nil)

	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.PostHit](1, 10), nil)
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 10), nil)
	m.users.On("SearchTrigram", mock.Anything, mock.Anything).Return(emptyBucket[domain.UserHit](1, 10), nil)
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 10), nil)

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "nomatch"})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), res.OverallTotal)
	assert.Empty(t, res.Posts.Items)
	assert.Empty(t, res.Activities.Items)
	assert.Empty(t, res.Users.Items)
	assert.Empty(t, res.Tags.Items)
	assert.False(t, res.Posts.HasMore)
	assert.False(t, res.Activities.HasMore)
	assert.False(t, res.Users.HasMore)
	assert.False(t, res.Tags.HasMore)
}

func TestSearch_AllTypeUsesRealWindowEverywhere(t *testing.T) {
	svc, m := newTestService(nil)

	realWindow := mock.MatchedBy(func(q *domain.SearchQuery) bool {
		return q.Page == 2 && q.Limit == 5
	})
	m.posts.On("SearchTS", mock.Anything, realWindow).Return(emptyBucket[domain.PostHit](2, 5), nil)
	m.activities.On("SearchTS", mock.Anything, realWindow).Return(emptyBucket[domain.ActivityHit](2, 5), nil)
	m.users.On("SearchTrigram", mock.Anything, realWindow).Return(emptyBucket[domain.UserHit](2, 5), nil)
	m.tags.On("Search", mock.Anything, realWindow).Return(emptyBucket[domain.TagHit](2, 5), nil)

	_, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "react", Page: 2, Limit: 5})

	assert.NoError(t, err)
	m.posts.AssertExpectations(t)
	m.activities.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.tags.AssertExpectations(t)
}

func TestSearch_PrimaryFailureFallsBackPerEntity(t *testing.T) {
	svc, m := newTestService(nil)

	// users primary (trigram) blows up: extension missing
	m.users.On("SearchTrigram", mock.Anything, mock.Anything).
		Return(nil, errors.New("pg: function similarity does not exist"))
	likeBucket := domain.NewSearchBucket([]domain.UserHit{{ID: "u1", Rank: 1}}, 1, 1, 10)
	m.users.On("SearchLike", mock.Anything, mock.Anything).Return(likeBucket, nil)

	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.PostHit](1, 10), nil)
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 10), nil)
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 10), nil)

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "alice"})

	assert.NoError(t, err)
	assert.Equal(t, likeBucket.Items, res.Users.Items)
	assert.Equal(t, int64(1), res.Users.Total)
	m.users.AssertExpectations(t)
}

func TestSearch_EntityFatalErrorFailsWholeResponse(t *testing.T) {
	svc, m := newTestService(nil)

	fatal := errors.New("connection refused")
	m.users.On("SearchTrigram", mock.Anything, mock.Anything).Return(nil, errors.New("primary down"))
	m.users.On("SearchLike", mock.Anything, mock.Anything).Return(nil, fatal)

	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.PostHit](1, 10), nil).Maybe()
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 10), nil).Maybe()
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 10), nil).Maybe()

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "alice"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, fatal)
}

func TestSearch_Idempotent(t *testing.T) {
	svc, m := newTestService(nil)

	posts := domain.NewSearchBucket([]domain.PostHit{{ID: "p1", Rank: 2}, {ID: "p2", Rank: 1}}, 2, 1, 10)
	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(posts, nil)
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 10), nil)
	m.users.On("SearchTrigram", mock.Anything, mock.Anything).Return(emptyBucket[domain.UserHit](1, 10), nil)
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 10), nil)

	raw := domain.RawSearchQuery{Text: "react"}
	first, err := svc.Search(context.Background(), raw)
	assert.NoError(t, err)
	second, err := svc.Search(context.Background(), raw)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSearch_SignsAvatarsInUserBucket(t *testing.T) {
	signer := new(mockSigner)
	svc, m := newTestService(signer)

	users := domain.NewSearchBucket([]domain.UserHit{
		{ID: "u1", Name: "alice", AvatarKey: "u1.png", Rank: 0.9},
		{ID: "u2", Name: "alicia", Rank: 0.5},
		{ID: "u3", Name: "malice", AvatarKey: "u3.png", Rank: 0.3},
	}, 3, 1, 10)

	m.users.On("SearchTrigram", mock.Anything, mock.Anything).Return(users, nil)
	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.PostHit](1, 1), nil)
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 1), nil)
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 1), nil)

	// one batched call covering every avatar key on the page
	signer.On("SignURLs", mock.Anything, []string{"u1.png", "u3.png"}).
		Return(map[string]string{
			"u1.png": "https://cdn/u1.png?sig=x",
			"u3.png": "https://cdn/u3.png?sig=y",
		}, nil).Once()

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "alice", Type: "users"})

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn/u1.png?sig=x", res.Users.Items[0].AvatarURL)
	assert.Empty(t, res.Users.Items[1].AvatarURL)
	assert.Equal(t, "https://cdn/u3.png?sig=y", res.Users.Items[2].AvatarURL)
	signer.AssertExpectations(t)
}

func TestSearch_SignerFailureDegradesToUnsigned(t *testing.T) {
	signer := new(mockSigner)
	svc, m := newTestService(signer)

	users := domain.NewSearchBucket([]domain.UserHit{{ID: "u1", AvatarKey: "u1.png"}}, 1, 1, 10)
	m.users.On("SearchTrigram", mock.Anything, mock.Anything).Return(users, nil)
	m.posts.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.PostHit](1, 1), nil)
	m.activities.On("SearchTS", mock.Anything, mock.Anything).Return(emptyBucket[domain.ActivityHit](1, 1), nil)
	m.tags.On("Search", mock.Anything, mock.Anything).Return(emptyBucket[domain.TagHit](1, 1), nil)

	signer.On("SignURLs", mock.Anything, mock.Anything).Return(nil, errors.New("presign failed"))

	res, err := svc.Search(context.Background(), domain.RawSearchQuery{Text: "alice", Type: "users"})

	assert.NoError(t, err)
	assert.Empty(t, res.Users.Items[0].AvatarURL)
}
