package services

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
)

func (cv *Converter) convertImage(ctx context.Context, inputPath, target, outputDir string) ([]string, error) {
	img, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ConversionError{Engine: "image", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConversionError{Engine: "image", Err: err}
	}

	outPath := filepath.Join(outputDir, baseName(inputPath)+"."+target)
	if err := cv.encodeImage(img, outPath, target); err != nil {
		return nil, err
	}
	return []string{outPath}, nil
}

// encodeImage writes img to path in the given format token.
func (cv *Converter) encodeImage(img image.Image, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return &FilesystemError{Op: "create", Path: path, Err: err}
	}
	w := bufio.NewWriter(f)

	switch format {
	case "png":
		err = imaging.Encode(w, img, imaging.PNG)
	case "jpg", "jpeg":
		err = imaging.Encode(w, flattenAlpha(img), imaging.JPEG, imaging.JPEGQuality(cv.imageQuality))
	case "webp":
		err = webp.Encode(w, img, webp.Options{Quality: cv.imageQuality})
	case "avif":
		err = avif.Encode(w, img, avif.Options{Quality: cv.imageQuality})
	default:
		err = fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		f.Close()
		return &ConversionError{Engine: "image", Err: err}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// flattenAlpha composites img over white. JPEG has no alpha channel and
// would otherwise render transparent pixels black.
func flattenAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
