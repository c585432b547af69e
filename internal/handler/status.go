package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blockwatch/internal/db"
	"blockwatch/internal/ledger"
)

// StatusHandler exposes the ops snapshot: message store stats, storage
// health, and the send ledger (current candidate plus held-back backlog).
type StatusHandler struct {
	DB     *db.DB
	Ledger *ledger.Ledger
}

func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/status", h.status)
}

func (h *StatusHandler) status(c *gin.Context) {
	stats, err := h.Ledger.Repo.MessageStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	candidate, backlog, err := h.Ledger.SelectSendCandidate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var candidateDate *string
	if candidate != nil {
		candidateDate = &candidate.ReportDate
	}
	backlogDates := make([]string, 0, len(backlog))
	for _, row := range backlog {
		backlogDates = append(backlogDates, row.ReportDate)
	}

	latest, err := h.Ledger.Repo.LatestReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"messages":       stats,
		"storage":        h.DB.Probe(),
		"send_candidate": candidateDate,
		"backlog":        backlogDates,
	}
	if latest != nil {
		resp["latest_report"] = gin.H{
			"report_date": latest.ReportDate,
			"is_sent":     latest.IsSent,
			"sent_at":     latest.SentAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}
