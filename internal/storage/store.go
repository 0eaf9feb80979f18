// Package storage keeps track of conversion jobs so that their artifacts can
// be looked up, deleted on request, and evicted once they expire.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

type JobRecord struct {
	ID           string    `json:"id"`
	UploadPath   string    `json:"uploadPath"`
	OutputDir    string    `json:"outputDir"`
	TargetFormat string    `json:"targetFormat"`
	Files        []string  `json:"files"`
	CreatedAt    time.Time `json:"createdAt"`
}

// JobStore is implemented by MemoryStore and RedisStore.
type JobStore interface {
	Save(ctx context.Context, rec JobRecord) error
	Get(ctx context.Context, id string) (*JobRecord, error)
	Delete(ctx context.Context, id string) error
	// CreatedBefore returns every record created strictly before cutoff,
	// oldest first.
	CreatedBefore(ctx context.Context, cutoff time.Time) ([]JobRecord, error)
}
