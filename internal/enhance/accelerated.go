//go:build gocv

package enhance

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"rawconv/internal/raster"
)

// Accelerated runs the enhancement chain through OpenCV.
type Accelerated struct {
	Params Params
}

// NewAccelerated returns an OpenCV-backed backend.
func NewAccelerated(p Params) (Backend, error) {
	return &Accelerated{Params: p}, nil
}

func (a *Accelerated) Name() string { return NameAccelerated }

func (a *Accelerated) Apply(ctx context.Context, src *raster.RGB) (*raster.RGB, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC3, src.Pix)
	if err != nil {
		return nil, fmt.Errorf("wrap raster: %w", err)
	}
	defer mat.Close()

	filtered := gocv.NewMat()
	defer filtered.Close()
	if a.Params.Sharpen {
		kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
		defer kernel.Close()
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				kernel.SetFloatAt(r, c, float32(sharpenKernel[r][c]))
			}
		}
		if err := gocv.Filter2D(mat, &filtered, gocv.MatType(-1), kernel, image.Pt(-1, -1), 0, gocv.BorderReflect101); err != nil {
			return nil, fmt.Errorf("filter2d: %w", err)
		}
	} else if err := mat.CopyTo(&filtered); err != nil {
		return nil, fmt.Errorf("copy raster: %w", err)
	}

	toned := gocv.NewMat()
	defer toned.Close()
	if err := gocv.ConvertScaleAbs(filtered, &toned, a.Params.Contrast, a.Params.Brightness); err != nil {
		return nil, fmt.Errorf("convert scale abs: %w", err)
	}

	pix := toned.ToBytes()
	if len(pix) != len(src.Pix) {
		return nil, errors.New("opencv returned unexpected buffer size")
	}
	return &raster.RGB{Width: src.Width, Height: src.Height, Pix: pix}, nil
}

// probeAccelerated reports whether OpenCV is linked and can run the filter
// chain on a tiny raster.
func probeAccelerated() (bool, string) {
	version := gocv.OpenCVVersion()
	if version == "" {
		return false, "opencv version unavailable"
	}
	backend := &Accelerated{Params: DefaultParams()}
	if _, err := backend.Apply(context.Background(), raster.New(4, 4)); err != nil {
		return false, fmt.Sprintf("opencv %s smoke test failed: %v", version, err)
	}
	return true, "opencv " + version
}
