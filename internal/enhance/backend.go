package enhance

import (
	"context"

	"rawconv/internal/raster"
)

// Backend names.
const (
	NameNone        = "none"
	NameReference   = "reference"
	NameAccelerated = "accelerated"
)

// Backend applies the enhancement chain to a raster and returns a new raster.
type Backend interface {
	Name() string
	Apply(ctx context.Context, src *raster.RGB) (*raster.RGB, error)
}

// Params holds the filter chain settings shared by all backends.
type Params struct {
	Sharpen    bool
	Contrast   float64
	Brightness float64
}

// DefaultParams mirrors the stock enhancement: 3x3 sharpen, x1.1 contrast, +10 brightness.
func DefaultParams() Params {
	return Params{Sharpen: true, Contrast: 1.1, Brightness: 10}
}

// sharpenKernel is the 3x3 high-boost kernel applied before the tone adjustment.
var sharpenKernel = [3][3]int{
	{-1, -1, -1},
	{-1, 9, -1},
	{-1, -1, -1},
}

// None is the identity backend used when enhancement is disabled.
type None struct{}

func (None) Name() string { return NameNone }

func (None) Apply(ctx context.Context, src *raster.RGB) (*raster.RGB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return src, nil
}
