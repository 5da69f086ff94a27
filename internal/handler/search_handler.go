package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devring/devring-backend/internal/common"
	"github.com/devring/devring-backend/internal/domain"
	"github.com/devring/devring-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Searcher is the unified search service consumed by the handler
type Searcher interface {
	Search(ctx context.Context, raw domain.RawSearchQuery) (*domain.UnifiedResult, error)
}

// SearchHandler handles unified search endpoints
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search performs unified search across posts, activities, users and tags
//
//	@Summary		Unified search
//	@Description	Searches all four entity types and returns per-entity buckets with an overall total
//	@Tags			search
//	@Produce		json
//	@Param			q			query	string	true	"Query text (1-100 chars)"
//	@Param			type		query	string	false	"all | posts | activities | users | tags"	default(all)
//	@Param			page		query	int		false	"Page (1-based)"							default(1)
//	@Param			limit		query	int		false	"Page size (1-10)"							default(10)
//	@Param			sort		query	string	false	"relevance | latest"						default(relevance)
//	@Param			author_id	query	string	false	"Restrict to one author"
//	@Param			tag_ids		query	string	false	"Comma-separated tag ids; posts must carry all of them"
//	@Param			date_from	query	string	false	"RFC3339 or YYYY-MM-DD lower bound"
//	@Param			date_to		query	string	false	"RFC3339 or YYYY-MM-DD upper bound"
//	@Success		200	{object}	domain.UnifiedResult
//	@Failure		400	{object}	common.APIResponse
//	@Failure		500	{object}	common.APIResponse
//	@Router			/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	raw := domain.RawSearchQuery{
		Text:          c.Query("q"),
		Type:          c.DefaultQuery("type", string(domain.SearchTypeAll)),
		Sort:          c.DefaultQuery("sort", string(domain.SortRelevance)),
		AuthorID:      c.Query("author_id"),
		IncludeDrafts: middleware.CanViewDrafts(c),
	}

	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		raw.Page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		raw.Limit = v
	}

	if ids := c.Query("tag_ids"); ids != "" {
		raw.TagIDs = strings.Split(ids, ",")
	}

	var ok bool
	if raw.DateFrom, ok = parseDateParam(c.Query("date_from")); !ok {
		common.ValidationErrorResponse(c, "date_from must be RFC3339 or YYYY-MM-DD")
		return
	}
	if raw.DateTo, ok = parseDateParam(c.Query("date_to")); !ok {
		common.ValidationErrorResponse(c, "date_to must be RFC3339 or YYYY-MM-DD")
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), raw)
	if err != nil {
		if common.IsValidationError(err) {
			common.ValidationErrorResponse(c, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "search failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseDateParam accepts RFC3339 timestamps or bare dates. Empty is fine;
// anything else unparseable is a validation failure.
func parseDateParam(v string) (*time.Time, bool) {
	if v == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, true
	}
	return nil, false
}
