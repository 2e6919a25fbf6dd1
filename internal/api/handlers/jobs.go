package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/core"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/db"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/pos"
)

type EnqueueJobRequest struct {
	ProfileID   string          `json:"profile_id"`
	Type        string          `json:"type"`
	MaxAttempts int             `json:"max_attempts"`
	Receipt     pos.ReceiptData `json:"receipt" binding:"required"`
}

type JobHandler struct {
	worker *core.Worker
}

func NewJobHandler(worker *core.Worker) *JobHandler {
	return &JobHandler{worker: worker}
}

func (h *JobHandler) EnqueueJob(c *gin.Context) {
	var req EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobType := pos.JobType(req.Type)
	if jobType == "" {
		jobType = pos.JobTypeReceipt
	}
	switch jobType {
	case pos.JobTypeReceipt, pos.JobTypeTest:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job type: " + req.Type})
		return
	}
	if jobType == pos.JobTypeReceipt && len(req.Receipt.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt must contain at least one item"})
		return
	}

	profileID := req.ProfileID
	if profileID == "" {
		profile, err := db.Profiles.GetDefaultProfile(c.Request.Context())
		if err != nil {
			if errors.Is(err, pos.ErrProfileNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no printer specified and no default configured"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve default printer"})
			return
		}
		profileID = profile.ID
	}

	jobID, err := h.worker.Enqueue(c.Request.Context(), profileID, req.Receipt, core.EnqueueOptions{
		Type:        jobType,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": jobID, "status": pos.JobStatusPending})
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	jobs, err := h.worker.ListJobs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []*pos.PrintJob{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := db.Jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pos.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) RetryJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	if err := h.worker.RetryJob(c.Request.Context(), id); err != nil {
		h.jobActionError(c, err, "failed to retry job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job queued for retry"})
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}

	if err := h.worker.CancelJob(c.Request.Context(), id); err != nil {
		h.jobActionError(c, err, "failed to cancel job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job cancelled"})
}

func (h *JobHandler) ClearSuccessful(c *gin.Context) {
	deleted, err := h.worker.ClearSuccessful(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ProcessQueue forces an immediate processing pass, seizing the pass lock
// if a stale one is held. The pass runs detached from the request.
func (h *JobHandler) ProcessQueue(c *gin.Context) {
	go h.worker.ProcessQueue(context.Background(), true)
	c.JSON(http.StatusAccepted, gin.H{"message": "queue processing triggered"})
}

func (h *JobHandler) QueueStats(c *gin.Context) {
	stats, err := h.worker.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return 0, false
	}
	return id, true
}

func (h *JobHandler) jobActionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, pos.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, core.ErrInvalidJobState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
