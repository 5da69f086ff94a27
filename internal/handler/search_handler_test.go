package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devring/devring-backend/internal/common"
	"github.com/devring/devring-backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, raw domain.RawSearchQuery) (*domain.UnifiedResult, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UnifiedResult), args.Error(1)
}

func setupRouter(searcher Searcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v2/search", NewSearchHandler(searcher).Search)
	return r
}

func doRequest(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSearchHandler_Success(t *testing.T) {
	searcher := new(mockSearcher)
	result := &domain.UnifiedResult{
		Query:        "react",
		Type:         domain.SearchTypeAll,
		Page:         1,
		Limit:        10,
		OverallTotal: 1,
		Posts:        domain.NewSearchBucket([]domain.PostHit{{ID: "p1", Title: "React tips"}}, 1, 1, 10),
		Activities:   domain.NewSearchBucket[domain.ActivityHit](nil, 0, 1, 10),
		Users:        domain.NewSearchBucket[domain.UserHit](nil, 0, 1, 10),
		Tags:         domain.NewSearchBucket[domain.TagHit](nil, 0, 1, 10),
	}
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(raw domain.RawSearchQuery) bool {
		return raw.Text == "react" && raw.Page == 2 && raw.Limit == 5 &&
			raw.Type == "posts" && raw.Sort == "latest" && !raw.IncludeDrafts
	})).Return(result, nil)

	w := doRequest(setupRouter(searcher), "/api/v2/search?q=react&type=posts&page=2&limit=5&sort=latest")

	assert.Equal(t, http.StatusOK, w.Code)
	var body domain.UnifiedResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "react", body.Query)
	assert.Equal(t, int64(1), body.OverallTotal)
	assert.Len(t, body.Posts.Items, 1)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_ValidationError(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything).
		Return(nil, common.NewValidationError("query text contains forbidden sequence \";\""))

	w := doRequest(setupRouter(searcher), "/api/v2/search?q=a%3Bb")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body common.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestSearchHandler_DatastoreErrorIsDistinguishable(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	w := doRequest(setupRouter(searcher), "/api/v2/search?q=react")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body common.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
}

func TestSearchHandler_TagIDsAndDates(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(raw domain.RawSearchQuery) bool {
		return len(raw.TagIDs) == 2 && raw.TagIDs[0] == "t1" && raw.TagIDs[1] == "t2" &&
			raw.DateFrom != nil && raw.DateTo == nil
	})).Return(&domain.UnifiedResult{}, nil)

	w := doRequest(setupRouter(searcher), "/api/v2/search?q=go&tag_ids=t1,t2&date_from=2026-01-01")

	assert.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}

func TestSearchHandler_BadDateIsValidationError(t *testing.T) {
	searcher := new(mockSearcher)

	w := doRequest(setupRouter(searcher), "/api/v2/search?q=go&date_from=not-a-date")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body common.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
