package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blockwatch/internal/db"
)

type HealthHandler struct {
	DB *db.DB
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	health := h.DB.Probe()
	if !health.Healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "db_unhealthy",
			"detail": health.Detail,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
