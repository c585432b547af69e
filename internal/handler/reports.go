package handler

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"blockwatch/internal/ledger"
	"blockwatch/internal/report"
	"blockwatch/internal/repository"
)

var reportDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ReportHandler exposes the manual report operations: fetch a stored
// report, regenerate one or a range, trigger a send check.
type ReportHandler struct {
	Repo      repository.Repository
	Generator *report.Generator
	Ledger    *ledger.Ledger
}

func (h *ReportHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/reports/:date", h.get)
	r.POST("/api/v1/reports/generate", h.generate)
	r.POST("/api/v1/reports/send", h.send)
}

func (h *ReportHandler) get(c *gin.Context) {
	date := c.Param("date")
	if !reportDateRe.MatchString(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	row, err := h.Repo.ReportByDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report for " + date})
		return
	}
	c.JSON(http.StatusOK, row)
}

type generateRequest struct {
	Date    string `json:"date"`
	From    string `json:"from"`
	To      string `json:"to"`
	MaxDays int    `json:"max_days"`
}

func (h *ReportHandler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case req.Date != "":
		if !reportDateRe.MatchString(req.Date) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		row, err := h.Generator.GenerateForDate(c.Request.Context(), req.Date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report_date": row.ReportDate})
	case req.From != "" && req.To != "":
		if !reportDateRe.MatchString(req.From) || !reportDateRe.MatchString(req.To) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from/to must be YYYY-MM-DD"})
			return
		}
		done, err := h.Generator.Backfill(c.Request.Context(), req.From, req.To, req.MaxDays)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     err.Error(),
				"generated": done,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"generated": done})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide date, or from and to"})
	}
}

func (h *ReportHandler) send(c *gin.Context) {
	if err := h.Ledger.SendPending(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
