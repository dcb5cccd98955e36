package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orrn/ticket-spool/internal/api/middleware"
	"github.com/orrn/ticket-spool/internal/db"
)

type JobStore interface {
	ListJobs(ctx context.Context, filter db.JobFilter) ([]*db.PrintJob, error)
	GetJob(ctx context.Context, id string) (*db.PrintJob, error)
	Stats(ctx context.Context) (*db.JobStats, error)
}

type ListJobsQuery struct {
	Kind   string `form:"kind" binding:"omitempty,oneof=ticket apm label"`
	Status string `form:"status" binding:"omitempty,oneof=delivered failed"`
	Limit  int    `form:"limit" binding:"min=0,max=500"`
	Offset int    `form:"offset" binding:"min=0"`
}

type ListJobsResponse struct {
	Jobs   []*db.PrintJob `json:"jobs"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type JobHandler struct {
	store JobStore
}

func NewJobHandler(store JobStore) *JobHandler {
	return &JobHandler{store: store}
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), db.JobFilter{
		Kind:   q.Kind,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		middleware.RequestLogger(c).Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, ListJobsResponse{Jobs: jobs, Limit: q.Limit, Offset: q.Offset})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		middleware.RequestLogger(c).Error("failed to get job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		middleware.RequestLogger(c).Error("failed to get job stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
