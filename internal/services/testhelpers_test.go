package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"file-converter/internal/config"
	"file-converter/internal/logger"

	"github.com/disintegration/imaging"
)

func TestMain(m *testing.M) {
	logger.InitWithOutput("error", io.Discard)
	os.Exit(m.Run())
}

func newTestConverter() *Converter {
	return NewConverter(config.ConversionConfig{
		Timeout:      time.Minute,
		RasterDPI:    72,
		ImageQuality: 90,
		OCRLanguages: []string{"eng"},
	}, NewTextSanitizer())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// writeTestImage writes a 40x30 image whose left half is opaque red and
// right half fully transparent.
func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

// writeTestPDF builds a minimal PDF with one Helvetica text line per page and
// a correct cross-reference table.
func writeTestPDF(t *testing.T, dir, name string, pageTexts ...string) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, 0, len(pageTexts))
	for i := range pageTexts {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageTexts)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, text := range pageTexts {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 18 Tf 20 100 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertInside(t *testing.T, dir string, paths []string) {
	t.Helper()
	if len(paths) == 0 {
		t.Fatal("expected at least one output path")
	}
	for _, p := range paths {
		if filepath.Dir(p) != dir {
			t.Errorf("%s is not inside %s", p, dir)
		}
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("output %s missing: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("output %s is empty", p)
		}
	}
}
