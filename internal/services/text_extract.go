package services

import (
	"context"
	"path/filepath"
	"strings"

	"file-converter/internal/logger"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"github.com/unidoc/unioffice/document"
)

func (cv *Converter) extractDocxText(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	doc, err := document.Open(inputPath)
	if err != nil {
		return nil, &ConversionError{Engine: "docx", Err: err}
	}
	defer doc.Close()

	var text strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			text.WriteString(run.Text())
		}
		text.WriteString("\n")
	}

	content := text.String()
	if strings.TrimSpace(content) == "" {
		logger.WithFields(logrus.Fields{
			"input": filepath.Base(inputPath),
		}).Warn("DOCX content is empty")
	}

	outPath := filepath.Join(outputDir, baseName(inputPath)+".txt")
	if err := writeText(outPath, cv.textSanitizer.SanitizeText(content)); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

func (cv *Converter) extractImageText(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(cv.ocrLanguages) > 0 {
		if err := client.SetLanguage(cv.ocrLanguages...); err != nil {
			return nil, &ConversionError{Engine: "ocr", Err: err}
		}
	}
	if err := client.SetImage(inputPath); err != nil {
		return nil, &ConversionError{Engine: "ocr", Err: err}
	}

	text, err := client.Text()
	if err != nil {
		return nil, &ConversionError{Engine: "ocr", Err: err}
	}

	logger.WithFields(logrus.Fields{
		"input":      filepath.Base(inputPath),
		"languages":  cv.ocrLanguages,
		"textLength": len(text),
	}).Debug("OCR completed")

	outPath := filepath.Join(outputDir, baseName(inputPath)+".txt")
	if err := writeText(outPath, cv.textSanitizer.SanitizeText(text)); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}
