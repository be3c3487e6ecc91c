// Package encode writes enhanced rasters to disk as JPEG, PNG, or TIFF.
//
// Files are written to a temporary sibling and renamed into place, so a
// failed or interrupted encode never leaves a truncated artifact at the
// output path.
package encode

import (
	"bufio"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"rawconv/internal/raster"
	"rawconv/internal/services"
)

// Formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatTIFF = "tiff"
)

// DefaultQuality matches the stock JPEG quality.
const DefaultQuality = 95

// Encoder writes rasters in a single format.
type Encoder struct {
	Format  string
	Quality int
}

// New returns an Encoder, defaulting to JPEG at DefaultQuality.
func New(format string, quality int) *Encoder {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "jpg" {
		format = FormatJPEG
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{Format: format, Quality: quality}
}

// Encode writes img to path and returns the size of the written file.
func (e *Encoder) Encode(ctx context.Context, img *raster.RGB, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := img.Validate(); err != nil {
		return 0, services.Wrap(services.ErrValidation, "encode", "validate raster", "", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := e.write(w, img); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("commit output: %w", err)
	}
	committed = true

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat output: %w", err)
	}
	return info.Size(), nil
}

func (e *Encoder) write(w *bufio.Writer, img *raster.RGB) error {
	rgba := img.ToRGBA()
	switch e.Format {
	case FormatJPEG:
		if err := jpeg.Encode(w, rgba, &jpeg.Options{Quality: e.Quality}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(w, rgba); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case FormatTIFF:
		if err := tiff.Encode(w, rgba, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("encode tiff: %w", err)
		}
	default:
		return services.Wrap(services.ErrConfiguration, "encode", "select format", fmt.Sprintf("unsupported format %q", e.Format), nil)
	}
	return nil
}

// Extension returns the file extension for format, including the dot.
func Extension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatPNG:
		return ".png"
	case FormatTIFF, "tif":
		return ".tif"
	default:
		return ".jpg"
	}
}
