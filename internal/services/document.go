package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"file-converter/internal/logger"

	"github.com/sirupsen/logrus"
)

const sofficeWaitDelay = 3 * time.Second

var sofficeCandidates = []string{
	"/usr/bin/soffice",
	"/usr/bin/libreoffice",
	"/opt/homebrew/bin/soffice",
	"/Applications/LibreOffice.app/Contents/MacOS/soffice",
}

// findSoffice returns the configured LibreOffice binary or the first one
// found on well-known paths, falling back to $PATH lookup.
func findSoffice(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, candidate := range sofficeCandidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("LibreOffice (soffice) not found")
}

func (cv *Converter) convertDocumentToPDF(ctx context.Context, inputPath, _ string, outputDir string) ([]string, error) {
	soffice, err := findSoffice(cv.sofficePath)
	if err != nil {
		return nil, &ConversionError{Engine: "LibreOffice", Err: err}
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: outputDir, Err: err}
	}
	absInputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: inputPath, Err: err}
	}

	// A private profile avoids lock contention between concurrent soffice
	// processes and keeps the profile out of the job directory.
	profileDir, err := os.MkdirTemp("", "soffice-profile-*")
	if err != nil {
		return nil, &FilesystemError{Op: "create", Path: os.TempDir(), Err: err}
	}
	defer os.RemoveAll(profileDir)

	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(profileDir),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", absOutputDir,
		absInputPath,
	}

	logger.WithFields(logrus.Fields{
		"binary": soffice,
		"args":   args,
	}).Debug("Executing LibreOffice")

	cmd := exec.CommandContext(ctx, soffice, args...)
	// soffice re-execs into soffice.bin, so the deadline has to take down the
	// whole process group or the orphan keeps the output pipe open.
	killProcessGroupOnCancel(cmd)
	cmd.WaitDelay = sofficeWaitDelay

	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &ConversionError{Engine: "LibreOffice", Err: ctxErr}
	}
	if err != nil {
		return nil, &ConversionError{Engine: "LibreOffice", Err: fmt.Errorf("%v, output: %s", err, output)}
	}

	outPath := filepath.Join(outputDir, baseName(inputPath)+".pdf")
	if _, err := os.Stat(outPath); err != nil {
		return nil, &ConversionError{
			Engine: "LibreOffice",
			Err:    fmt.Errorf("no output file produced at %s, output: %s", outPath, output),
		}
	}
	return []string{outPath}, nil
}
