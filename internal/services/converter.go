package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"file-converter/internal/config"
	"file-converter/internal/logger"

	"github.com/sirupsen/logrus"
)

type strategy func(ctx context.Context, inputPath, target, outputDir string) ([]string, error)

type route struct {
	name string
	from []string
	to   []string
	run  strategy
}

func (r route) matches(ext, target string) bool {
	return contains(r.from, ext) && contains(r.to, target)
}

// Converter routes a file to the conversion strategy registered for its
// (extension, target format) pair. It holds no per-request state and may be
// shared by concurrent requests as long as their output directories differ.
type Converter struct {
	timeout       time.Duration
	sofficePath   string
	rasterDPI     float64
	imageQuality  int
	ocrLanguages  []string
	textSanitizer *TextSanitizer
	routes        []route
}

func NewConverter(cfg config.ConversionConfig, textSanitizer *TextSanitizer) *Converter {
	cv := &Converter{
		timeout:       cfg.Timeout,
		sofficePath:   cfg.SofficePath,
		rasterDPI:     cfg.RasterDPI,
		imageQuality:  cfg.ImageQuality,
		ocrLanguages:  cfg.OCRLanguages,
		textSanitizer: textSanitizer,
	}
	if cv.rasterDPI <= 0 {
		cv.rasterDPI = 150
	}
	if cv.imageQuality <= 0 {
		cv.imageQuality = 90
	}

	imageFormats := []string{"png", "jpg", "jpeg"}

	// Order matters: the first matching route wins.
	cv.routes = []route{
		{"document-pdf", []string{"docx", "odt", "doc"}, []string{"pdf"}, cv.convertDocumentToPDF},
		{"xlsx-csv", []string{"xlsx"}, []string{"csv"}, cv.convertXlsxToCsv},
		{"csv-xlsx", []string{"csv"}, []string{"xlsx"}, cv.convertCsvToXlsx},
		{"image", imageFormats, []string{"png", "jpg", "jpeg", "webp", "avif"}, cv.convertImage},
		{"pdf-images", []string{"pdf"}, []string{"png", "jpg", "images"}, cv.convertPDFToImages},
		{"pdf-text", []string{"pdf"}, []string{"txt"}, cv.extractPDFText},
		{"docx-text", []string{"docx"}, []string{"txt"}, cv.extractDocxText},
		{"image-ocr", imageFormats, []string{"txt"}, cv.extractImageText},
	}
	return cv
}

// Convert writes the converted artifact(s) for inputPath into outputDir and
// returns their paths in production order.
func (cv *Converter) Convert(ctx context.Context, inputPath, targetFormat, outputDir string) ([]string, error) {
	ext := extension(inputPath)
	target := strings.ToLower(strings.TrimSpace(targetFormat))

	run, name := cv.resolve(ext, target)
	if run == nil {
		return nil, &UnsupportedConversionError{From: ext, To: target}
	}

	if cv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cv.timeout)
		defer cancel()
	}

	log := logger.WithFields(logrus.Fields{
		"input":    filepath.Base(inputPath),
		"from":     ext,
		"to":       target,
		"strategy": name,
	})
	log.Info("Starting conversion")

	started := time.Now()
	outputs, err := run(ctx, inputPath, target, outputDir)
	if err != nil {
		log.WithField("error", err.Error()).Error("Conversion failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"outputs":    len(outputs),
		"durationMs": time.Since(started).Milliseconds(),
	}).Info("Conversion finished")
	return outputs, nil
}

// Supports reports whether Convert has a strategy for the pair.
func (cv *Converter) Supports(ext, targetFormat string) bool {
	run, _ := cv.resolve(strings.TrimPrefix(strings.ToLower(ext), "."), strings.ToLower(strings.TrimSpace(targetFormat)))
	return run != nil
}

func (cv *Converter) resolve(ext, target string) (strategy, string) {
	for _, r := range cv.routes {
		if r.matches(ext, target) {
			return r.run, r.name
		}
	}
	if ext != "" && target == ext {
		return cv.passThrough, "pass-through"
	}
	return nil, ""
}

func (cv *Converter) passThrough(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	outPath := filepath.Join(outputDir, filepath.Base(inputPath))
	if err := copyFile(inputPath, outPath); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

func copyFile(src, dst string) error {
	absSrc, _ := filepath.Abs(src)
	absDst, _ := filepath.Abs(dst)
	if absSrc == absDst {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return &FilesystemError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &FilesystemError{Op: "create", Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &FilesystemError{Op: "write", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: dst, Err: err}
	}
	return nil
}

func extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
