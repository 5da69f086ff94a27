package handler

import (
	"net/http"

	pkgcache "github.com/devring/devring-backend/pkg/cache"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports process liveness and dependency status
type HealthHandler struct {
	db    *gorm.DB
	cache pkgcache.Service
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB, cache pkgcache.Service) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Healthz returns liveness plus dependency health
//
//	@Summary	Health check
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok", "cache": "ok"}

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["database"] = "down"
		}
	} else {
		status["database"] = "down"
	}

	if h.cache == nil || !h.cache.IsAvailable() || h.cache.Ping(c.Request.Context()) != nil {
		status["cache"] = "down"
	}

	c.JSON(http.StatusOK, status)
}
