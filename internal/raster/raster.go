// Package raster defines the in-memory RGB buffer that flows between the
// decode, enhance, and encode phases.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrEmpty reports a raster with no pixels.
var ErrEmpty = errors.New("raster is empty")

// RGB is an 8-bit interleaved RGB image. Pix holds Width*Height*3 bytes in
// row-major order with no row padding.
type RGB struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed raster.
func New(width, height int) *RGB {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &RGB{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// Stride returns the number of bytes per row.
func (r *RGB) Stride() int { return r.Width * 3 }

// Validate checks that the buffer length matches the dimensions.
func (r *RGB) Validate() error {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return ErrEmpty
	}
	if want := r.Width * r.Height * 3; len(r.Pix) != want {
		return fmt.Errorf("raster buffer length %d does not match %dx%d (want %d)", len(r.Pix), r.Width, r.Height, want)
	}
	return nil
}

// Clone returns a deep copy.
func (r *RGB) Clone() *RGB {
	out := &RGB{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// At returns the pixel at (x, y).
func (r *RGB) At(x, y int) (red, green, blue uint8) {
	i := y*r.Stride() + x*3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the pixel at (x, y).
func (r *RGB) Set(x, y int, red, green, blue uint8) {
	i := y*r.Stride() + x*3
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

// FromImage converts any image to an RGB raster, dropping alpha. 16-bit
// samples are reduced to their high byte.
func FromImage(img image.Image) (*RGB, error) {
	if img == nil {
		return nil, ErrEmpty
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmpty
	}
	out := New(bounds.Dx(), bounds.Dy())

	// Pix[0] of the concrete types is the pixel at bounds.Min.
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[y*src.Stride:]
			dst := out.Pix[y*out.Stride():]
			for x := 0; x < out.Width; x++ {
				dst[x*3], dst[x*3+1], dst[x*3+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		}
		return out, nil
	case *image.RGBA64:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[y*src.Stride:]
			dst := out.Pix[y*out.Stride():]
			for x := 0; x < out.Width; x++ {
				dst[x*3], dst[x*3+1], dst[x*3+2] = row[x*8], row[x*8+2], row[x*8+4]
			}
		}
		return out, nil
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			out.Set(x, y, c.R, c.G, c.B)
		}
	}
	return out, nil
}

// ToRGBA converts the raster to an opaque *image.RGBA.
func (r *RGB) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		src := r.Pix[y*r.Stride():]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < r.Width; x++ {
			dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = src[x*3], src[x*3+1], src[x*3+2], 0xff
		}
	}
	return img
}
