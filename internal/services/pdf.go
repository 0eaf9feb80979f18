package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"file-converter/internal/logger"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

// convertPDFToImages rasterizes every page to {base}_{page}.{png|jpg}.
// The "images" target produces PNG.
func (cv *Converter) convertPDFToImages(ctx context.Context, inputPath, target, outputDir string) ([]string, error) {
	format := target
	if format == "images" {
		format = "png"
	}

	doc, err := fitz.New(inputPath)
	if err != nil {
		return nil, &ConversionError{Engine: "pdf", Err: err}
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, &ConversionError{Engine: "pdf", Err: errors.New("document has no pages")}
	}

	base := baseName(inputPath)
	outputs := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &ConversionError{Engine: "pdf", Err: err}
		}

		img, err := doc.ImageDPI(i, cv.rasterDPI)
		if err != nil {
			return nil, &ConversionError{Engine: "pdf", Err: fmt.Errorf("render page %d: %w", i+1, err)}
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%d.%s", base, i+1, format))
		if err := cv.encodeImage(img, outPath, format); err != nil {
			return nil, err
		}
		outputs = append(outputs, outPath)
	}

	logger.WithFields(logrus.Fields{
		"input": filepath.Base(inputPath),
		"pages": pages,
		"dpi":   cv.rasterDPI,
	}).Debug("Rasterized PDF")
	return outputs, nil
}

// extractPDFText reads the text layer directly and falls back to MuPDF's
// text extraction when that yields nothing.
func (cv *Converter) extractPDFText(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	text, err := readPDFText(inputPath)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"input": filepath.Base(inputPath),
			"error": err.Error(),
		}).Warn("Failed to extract text directly from PDF")
	}

	if strings.TrimSpace(text) == "" {
		text, err = readPDFTextWithFitz(ctx, inputPath)
		if err != nil {
			return nil, &ConversionError{Engine: "pdf", Err: err}
		}
	}

	outPath := filepath.Join(outputDir, baseName(inputPath)+".txt")
	if err := writeText(outPath, cv.textSanitizer.SanitizeText(text)); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

func readPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func readPDFTextWithFitz(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var text strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pageText, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func writeText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}
