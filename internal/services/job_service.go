package services

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"file-converter/internal/config"
	"file-converter/internal/logger"
	"file-converter/internal/models"
	"file-converter/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher is the conversion contract the job service depends on.
type Dispatcher interface {
	Convert(ctx context.Context, inputPath, targetFormat, outputDir string) ([]string, error)
	Supports(ext, targetFormat string) bool
}

type JobService struct {
	dispatcher   Dispatcher
	store        storage.JobStore
	outputDir    string
	publicPrefix string
	retention    config.RetentionConfig

	newID func() string
	now   func() time.Time
}

func NewJobService(dispatcher Dispatcher, store storage.JobStore, storageCfg config.StorageConfig, retention config.RetentionConfig) *JobService {
	return &JobService{
		dispatcher:   dispatcher,
		store:        store,
		outputDir:    storageCfg.OutputDir,
		publicPrefix: storageCfg.PublicPrefix,
		retention:    retention,
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// CheckSupported rejects a filename/target pair the dispatcher has no route
// for, before anything is stored or a job directory is created.
func (s *JobService) CheckSupported(filename, targetFormat string) error {
	ext := extension(filename)
	target := strings.ToLower(strings.TrimSpace(targetFormat))
	if !s.dispatcher.Supports(ext, target) {
		return &UnsupportedConversionError{From: ext, To: target}
	}
	return nil
}

// HandleConvert runs one conversion job for an already stored upload.
func (s *JobService) HandleConvert(ctx context.Context, upload *models.UploadedFile, targetFormat string) (*models.ConvertResponse, error) {
	if upload == nil {
		return nil, ErrNoFileProvided
	}

	jobID := s.newID()
	jobDir := filepath.Join(s.outputDir, jobID)
	log := logger.WithFields(logrus.Fields{
		"jobId":        jobID,
		"file":         upload.OriginalName,
		"targetFormat": targetFormat,
	})

	if err := os.MkdirAll(jobDir, 0755); err != nil {
		log.WithField("error", err.Error()).Error("Failed to create job directory")
		// No record exists yet, so the sweeper would never find the upload.
		if rmErr := os.Remove(upload.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.WithField("error", rmErr.Error()).Warn("Failed to remove orphaned upload")
		}
		return nil, &FilesystemError{Op: "create", Path: jobDir, Err: err}
	}

	rec := storage.JobRecord{
		ID:           jobID,
		UploadPath:   upload.Path,
		OutputDir:    jobDir,
		TargetFormat: targetFormat,
		CreatedAt:    s.now(),
	}

	outputs, err := s.dispatcher.Convert(ctx, upload.Path, targetFormat, jobDir)
	if err != nil {
		// Partial output is left for the retention sweeper.
		s.record(ctx, rec)
		return nil, err
	}

	rec.Files = outputs
	s.record(ctx, rec)

	files := make([]models.OutputFile, 0, len(outputs))
	for _, p := range outputs {
		files = append(files, s.publicFile(jobID, p))
	}

	log.WithField("files", len(files)).Info("Conversion job completed")
	return &models.ConvertResponse{
		JobID: jobID,
		Files: files,
	}, nil
}

// Job returns the public view of a recorded job.
func (s *JobService) Job(ctx context.Context, jobID string) (*models.JobResponse, error) {
	rec, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &models.JobResponse{
		JobID:        rec.ID,
		TargetFormat: rec.TargetFormat,
		Files:        make([]models.OutputFile, 0, len(rec.Files)),
		CreatedAt:    rec.CreatedAt,
	}
	for _, p := range rec.Files {
		resp.Files = append(resp.Files, s.publicFile(rec.ID, p))
	}
	if s.retention.TTL > 0 {
		expires := rec.CreatedAt.Add(s.retention.TTL)
		resp.ExpiresAt = &expires
	}
	return resp, nil
}

// Cleanup removes a job's output directory, its upload and its record.
// It returns the number of output files that were on disk.
func (s *JobService) Cleanup(ctx context.Context, jobID string) (int, error) {
	rec, err := s.store.Get(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return s.evict(ctx, *rec)
}

// Sweep evicts every job older than the retention TTL. A zero TTL keeps
// jobs forever.
func (s *JobService) Sweep(ctx context.Context) (int, error) {
	if s.retention.TTL <= 0 {
		return 0, nil
	}

	expired, err := s.store.CreatedBefore(ctx, s.now().Add(-s.retention.TTL))
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, rec := range expired {
		if _, err := s.evict(ctx, rec); err != nil {
			logger.WithFields(logrus.Fields{
				"jobId": rec.ID,
				"error": err.Error(),
			}).Warn("Failed to evict expired job")
			continue
		}
		evicted++
	}

	if evicted > 0 {
		logger.WithFields(logrus.Fields{
			"evicted": evicted,
			"ttl":     s.retention.TTL.String(),
		}).Info("Retention sweep completed")
	}
	return evicted, nil
}

// RunRetention sweeps on every tick until ctx is cancelled.
func (s *JobService) RunRetention(ctx context.Context) {
	if s.retention.TTL <= 0 || s.retention.SweepInterval <= 0 {
		logger.Info("Retention sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.retention.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Error("Retention sweep failed")
			}
		}
	}
}

func (s *JobService) evict(ctx context.Context, rec storage.JobRecord) (int, error) {
	entries, _ := os.ReadDir(rec.OutputDir)
	if err := os.RemoveAll(rec.OutputDir); err != nil {
		return 0, &FilesystemError{Op: "remove", Path: rec.OutputDir, Err: err}
	}
	if rec.UploadPath != "" {
		if err := os.Remove(rec.UploadPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, &FilesystemError{Op: "remove", Path: rec.UploadPath, Err: err}
		}
	}
	if err := s.store.Delete(ctx, rec.ID); err != nil && !errors.Is(err, storage.ErrJobNotFound) {
		return 0, err
	}
	return len(entries), nil
}

func (s *JobService) record(ctx context.Context, rec storage.JobRecord) {
	if err := s.store.Save(ctx, rec); err != nil {
		logger.WithFields(logrus.Fields{
			"jobId": rec.ID,
			"error": err.Error(),
		}).Warn("Failed to record job")
	}
}

func (s *JobService) publicFile(jobID, filePath string) models.OutputFile {
	name := filepath.Base(filePath)
	return models.OutputFile{
		Name: name,
		URL:  path.Join(s.publicPrefix, jobID, url.PathEscape(name)),
	}
}
