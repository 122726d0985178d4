package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"engagement-engine/internal/learning"
	"engagement-engine/internal/models"
	"engagement-engine/internal/repository"
)

const maxBatchSize = 1000

// Engine is the part of the learning orchestrator the API uses.
type Engine interface {
	Process(ctx context.Context, record models.InteractionRecord) (*models.LearningReport, error)
	ProcessBatch(ctx context.Context, records []models.InteractionRecord) (*models.BatchResult, error)
	Report(sessionID string) (*models.LearningReport, bool)
	PeriodReport(creatorID string, from, to time.Time) models.PeriodReport
	Strategy(creatorID string) models.StrategyProfile
	HasStrategy(creatorID string) bool
	Dashboard() models.DashboardStats
}

type LearningHandler interface {
	SubmitRecord(c *gin.Context)
	SubmitBatch(c *gin.Context)
	GetReport(c *gin.Context)
	GetPeriodReport(c *gin.Context)
	GetStrategy(c *gin.Context)
	GetDashboard(c *gin.Context)
}

type learningHandler struct {
	engine  Engine
	reports repository.ReportRepository
	logger  *zap.Logger
}

// NewLearningHandler creates the handler. reports may be nil, in which case only the
// in-memory session history is served.
func NewLearningHandler(engine Engine, reports repository.ReportRepository, logger *zap.Logger) LearningHandler {
	return &learningHandler{engine: engine, reports: reports, logger: logger}
}

// SubmitRecord handles POST /api/v1/records
func (h *learningHandler) SubmitRecord(c *gin.Context) {
	var record models.InteractionRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	report, err := h.engine.Process(c.Request.Context(), record)
	if err != nil {
		if errors.Is(err, learning.ErrPersistenceUnavailable) {
			h.logger.Error("Failed to persist learning session", zap.String("post_id", record.PostID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence unavailable", "unprocessed_ids": []string{record.PostID}})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// SubmitBatch handles POST /api/v1/records/batch
func (h *learningHandler) SubmitBatch(c *gin.Context) {
	var req struct {
		Records []models.InteractionRecord `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records must not be empty"})
		return
	}
	if len(req.Records) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d records per batch", maxBatchSize)})
		return
	}

	result, err := h.engine.ProcessBatch(c.Request.Context(), req.Records)
	if err != nil {
		var perr *learning.PersistenceError
		if errors.As(err, &perr) {
			h.logger.Error("Batch aborted", zap.Int("unprocessed", len(perr.Unprocessed)), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":           "Persistence unavailable",
				"unprocessed_ids": perr.Unprocessed,
				"result":          result,
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "result": result})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReport handles GET /api/v1/reports/:session_id
func (h *learningHandler) GetReport(c *gin.Context) {
	sessionID := c.Param("session_id")

	if report, ok := h.engine.Report(sessionID); ok {
		c.JSON(http.StatusOK, report)
		return
	}

	if h.reports != nil {
		report, err := h.reports.GetReport(c.Request.Context(), sessionID)
		if err != nil {
			h.logger.Error("Failed to get report", zap.String("session_id", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
			return
		}
		if report != nil {
			c.JSON(http.StatusOK, report)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
}

// GetPeriodReport handles GET /api/v1/creators/:creator_id/reports?from=&to=
func (h *learningHandler) GetPeriodReport(c *gin.Context) {
	creatorID := c.Param("creator_id")

	from, err := parseTime(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from: " + err.Error()})
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to: " + err.Error()})
		return
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	if h.reports == nil {
		c.JSON(http.StatusOK, h.engine.PeriodReport(creatorID, from, to))
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), creatorID, from, to)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.String("creator_id", creatorID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, learning.BuildPeriodReport(creatorID, from, to, reports, time.Now()))
}

// GetStrategy handles GET /api/v1/creators/:creator_id/strategy
func (h *learningHandler) GetStrategy(c *gin.Context) {
	creatorID := c.Param("creator_id")
	source := "default"
	if h.engine.HasStrategy(creatorID) {
		source = "learned"
	}
	c.Header("X-Strategy-Source", source)
	c.JSON(http.StatusOK, h.engine.Strategy(creatorID))
}

// GetDashboard handles GET /api/v1/dashboard
func (h *learningHandler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Dashboard())
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
