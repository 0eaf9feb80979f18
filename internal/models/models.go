package models

import "time"

type ConvertForm struct {
	TargetFormat string `form:"targetFormat" binding:"required,max=16"`
}

type OutputFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ConvertResponse struct {
	JobID string       `json:"jobId"`
	Files []OutputFile `json:"files"`
}

// UploadedFile describes a raw upload already stored in the upload root.
type UploadedFile struct {
	Path         string
	OriginalName string
	Size         int64
	ContentType  string
}

type JobResponse struct {
	JobID        string       `json:"jobId"`
	TargetFormat string       `json:"targetFormat"`
	Files        []OutputFile `json:"files"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
}

type DeleteJobResponse struct {
	Message      string `json:"message"`
	JobID        string `json:"jobId"`
	DeletedFiles int    `json:"deletedFiles"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
