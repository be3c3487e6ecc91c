package enhance

import (
	"context"
	"math"

	"rawconv/internal/raster"
)

// Reference is the pure Go implementation of the enhancement chain.
type Reference struct {
	Params Params
}

// NewReference returns a Reference backend with the supplied parameters.
func NewReference(p Params) *Reference {
	return &Reference{Params: p}
}

func (r *Reference) Name() string { return NameReference }

// Apply sharpens with reflect-101 borders, then maps each sample to
// saturate(|v*contrast + brightness|).
func (r *Reference) Apply(ctx context.Context, src *raster.RGB) (*raster.RGB, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	out := src
	if r.Params.Sharpen {
		sharpened, err := sharpen(ctx, src)
		if err != nil {
			return nil, err
		}
		out = sharpened
	}
	return scaleAbs(ctx, out, r.Params.Contrast, r.Params.Brightness)
}

func sharpen(ctx context.Context, src *raster.RGB) (*raster.RGB, error) {
	out := raster.New(src.Width, src.Height)
	stride := src.Stride()
	for y := 0; y < src.Height; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for x := 0; x < src.Width; x++ {
			for c := 0; c < 3; c++ {
				sum := 0
				for ky := -1; ky <= 1; ky++ {
					row := reflect101(y+ky, src.Height) * stride
					for kx := -1; kx <= 1; kx++ {
						col := reflect101(x+kx, src.Width) * 3
						sum += sharpenKernel[ky+1][kx+1] * int(src.Pix[row+col+c])
					}
				}
				out.Pix[y*stride+x*3+c] = clampByte(sum)
			}
		}
	}
	return out, nil
}

func scaleAbs(ctx context.Context, src *raster.RGB, alpha, beta float64) (*raster.RGB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampByte(int(math.RoundToEven(math.Abs(float64(v)*alpha + beta))))
	}
	out := raster.New(src.Width, src.Height)
	for i, v := range src.Pix {
		out.Pix[i] = lut[v]
	}
	return out, nil
}

// reflect101 mirrors an out-of-range index without repeating the edge sample:
// -1 maps to 1 and n maps to n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
