package handlers

import (
	"fmt"
	"net/http"

	"file-converter/internal/logger"
	"file-converter/internal/models"
	"file-converter/internal/services"
	"file-converter/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type JobHandler struct {
	jobs *services.JobService
}

func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.jobs.Job(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.jobs.Cleanup(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"jobId":        jobID,
		"deletedFiles": deleted,
	}).Info("Job deleted")

	c.JSON(http.StatusOK, models.DeleteJobResponse{
		Message:      fmt.Sprintf("Successfully deleted job %s", jobID),
		JobID:        jobID,
		DeletedFiles: deleted,
	})
}

// jobIDParam rejects anything that is not a UUID before it reaches the
// store or the filesystem.
func jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		respondError(c, storage.ErrJobNotFound)
		return "", false
	}
	return jobID, true
}
