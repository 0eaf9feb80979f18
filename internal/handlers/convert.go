package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"file-converter/internal/logger"
	"file-converter/internal/models"
	"file-converter/internal/services"
	"file-converter/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type ConvertHandler struct {
	jobs    *services.JobService
	uploads *services.UploadPolicy
}

func NewConvertHandler(jobs *services.JobService, uploads *services.UploadPolicy) *ConvertHandler {
	return &ConvertHandler{
		jobs:    jobs,
		uploads: uploads,
	}
}

func (h *ConvertHandler) Convert(c *gin.Context) {
	if h.uploads.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "File too large"})
			return
		}
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("No file in /api/convert request")
		respondError(c, services.ErrNoFileProvided)
		return
	}

	var form models.ConvertForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: bindingMessage(err)})
		return
	}

	logger.WithFields(logrus.Fields{
		"file":         fh.Filename,
		"size":         fh.Size,
		"targetFormat": form.TargetFormat,
	}).Info("Received /api/convert request")

	if !h.uploads.Allows(fh.Filename, fh.Header.Get("Content-Type")) {
		respondError(c, fmt.Errorf("%w: %s", services.ErrFileTypeNotAllowed, fh.Filename))
		return
	}
	if err := h.jobs.CheckSupported(fh.Filename, form.TargetFormat); err != nil {
		respondError(c, err)
		return
	}

	upload, err := h.uploads.Store(fh)
	if err != nil {
		respondError(c, err)
		return
	}

	// A client disconnect must not abort a conversion already under way;
	// the converter enforces its own deadline.
	ctx := context.WithoutCancel(c.Request.Context())
	resp, err := h.jobs.HandleConvert(ctx, upload, form.TargetFormat)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "required" {
			return "targetFormat is required"
		}
		return "Invalid targetFormat"
	}
	return "Invalid request: " + err.Error()
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNoFileProvided),
		errors.Is(err, services.ErrFileTypeNotAllowed),
		errors.Is(err, services.ErrUnsupportedConversion):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrJobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	entry := logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}
