package services

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileProvided        = errors.New("No file uploaded")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrFileTypeNotAllowed    = errors.New("File type not allowed")
)

// UnsupportedConversionError is returned when no routing rule matches the
// (source extension, target format) pair. Nothing is written in that case.
type UnsupportedConversionError struct {
	From string
	To   string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("Conversion from .%s to %s is not supported", e.From, e.To)
}

func (e *UnsupportedConversionError) Is(target error) bool {
	return target == ErrUnsupportedConversion
}

// ConversionError wraps a failure reported by a delegated engine or library.
type ConversionError struct {
	Engine string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s conversion failed: %v", e.Engine, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
