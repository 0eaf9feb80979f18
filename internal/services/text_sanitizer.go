package services

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	controlCharsRegex      = regexp.MustCompile(`[\x00-\x08\x0B-\x0C\x0E-\x1F\x7F]`)
	zeroWidthRegex         = regexp.MustCompile(`[\x{200B}-\x{200F}\x{FEFF}]`)
	lineSeparatorRegex     = regexp.MustCompile(`\r\n|[\r\x{2028}\x{2029}\x{0085}]`)
	trailingSpaceRegex     = regexp.MustCompile(`[ \t]+\n`)
	excessiveNewlinesRegex = regexp.MustCompile(`\n{4,}`)
	unsafeFilenameRegex    = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)
)

// TextSanitizer normalizes text pulled out of PDFs, DOCX files and OCR, and
// user-supplied file names.
type TextSanitizer struct{}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{}
}

// SanitizeText strips control and zero-width characters, normalizes line
// separators to "\n" and collapses runs of blank lines.
func (ts *TextSanitizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	sanitized := lineSeparatorRegex.ReplaceAllString(text, "\n")
	sanitized = controlCharsRegex.ReplaceAllString(sanitized, "")
	sanitized = zeroWidthRegex.ReplaceAllString(sanitized, "")
	sanitized = strings.ReplaceAll(sanitized, "\u00a0", " ")
	sanitized = trailingSpaceRegex.ReplaceAllString(sanitized, "\n")
	sanitized = excessiveNewlinesRegex.ReplaceAllString(sanitized, "\n\n\n")

	return strings.TrimSpace(sanitized)
}

// SanitizeFilename reduces an uploaded name to its base name and replaces
// anything outside letters, digits, dot, dash, underscore and space.
func (ts *TextSanitizer) SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" || name == "_" {
		return "upload"
	}
	return name
}
