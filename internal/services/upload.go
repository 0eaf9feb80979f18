package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"file-converter/internal/models"
)

var (
	defaultAllowedExtensions = []string{"docx", "pdf", "png", "jpg", "jpeg", "xlsx", "csv"}
	defaultAllowedMIMETypes  = []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/pdf",
		"image/png",
		"image/jpeg",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/csv",
	}
)

// UploadPolicy guards the ingestion boundary: it decides which uploads are
// accepted and stores accepted ones in the upload root.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
	AllowedMIMETypes  []string

	dir       string
	sanitizer *TextSanitizer
	now       func() time.Time
}

func NewUploadPolicy(uploadDir string, maxBytes int64, sanitizer *TextSanitizer) *UploadPolicy {
	return &UploadPolicy{
		MaxBytes:          maxBytes,
		AllowedExtensions: defaultAllowedExtensions,
		AllowedMIMETypes:  defaultAllowedMIMETypes,
		dir:               uploadDir,
		sanitizer:         sanitizer,
		now:               time.Now,
	}
}

// Allows accepts a file when either its MIME type or its extension is on
// the allow-list.
func (p *UploadPolicy) Allows(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && contains(p.AllowedMIMETypes, mediaType) {
		return true
	}
	return contains(p.AllowedExtensions, extension(filename))
}

const maxNameAttempts = 100

// create opens {unixMillis}-{name} exclusively. When another upload already
// holds that path it retries with {unixMillis}-{n}-{name}.
func (p *UploadPolicy) create(name string) (string, *os.File, error) {
	millis := p.now().UnixMilli()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := fmt.Sprintf("%d-%s", millis, name)
		if attempt > 0 {
			candidate = fmt.Sprintf("%d-%d-%s", millis, attempt, name)
		}
		dst := filepath.Join(p.dir, candidate)
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, &FilesystemError{Op: "create", Path: dst, Err: err}
		}
		return dst, out, nil
	}
	return "", nil, &FilesystemError{
		Op:   "create",
		Path: filepath.Join(p.dir, fmt.Sprintf("%d-%s", millis, name)),
		Err:  fs.ErrExist,
	}
}

// Store copies the upload to {uploadDir}/{unixMillis}-{name} without ever
// overwriting an existing upload.
func (p *UploadPolicy) Store(fh *multipart.FileHeader) (*models.UploadedFile, error) {
	if fh == nil {
		return nil, ErrNoFileProvided
	}
	contentType := fh.Header.Get("Content-Type")
	if !p.Allows(fh.Filename, contentType) {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, fh.Filename)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, &FilesystemError{Op: "open upload", Path: fh.Filename, Err: err}
	}
	defer src.Close()

	dst, out, err := p.create(p.sanitizer.SanitizeFilename(fh.Filename))
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return nil, &FilesystemError{Op: "write", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return nil, &FilesystemError{Op: "close", Path: dst, Err: err}
	}

	return &models.UploadedFile{
		Path:         dst,
		OriginalName: fh.Filename,
		Size:         size,
		ContentType:  strings.TrimSpace(contentType),
	}, nil
}
