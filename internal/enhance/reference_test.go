package enhance

import (
	"context"
	"testing"

	"rawconv/internal/raster"
)

func TestReflect101(t *testing.T) {
	cases := []struct {
		i, n, want int
	}{
		{-1, 5, 1},
		{0, 5, 0},
		{5, 5, 3},
		{6, 5, 2},
		{-1, 1, 0},
		{1, 1, 0},
		{-1, 2, 1},
		{2, 2, 0},
	}
	for _, tc := range cases {
		if got := reflect101(tc.i, tc.n); got != tc.want {
			t.Fatalf("reflect101(%d, %d) = %d want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestSharpenLeavesFlatImageUnchanged(t *testing.T) {
	src := raster.New(4, 3)
	for i := range src.Pix {
		src.Pix[i] = 120
	}
	out, err := sharpen(context.Background(), src)
	if err != nil {
		t.Fatalf("sharpen returned error: %v", err)
	}
	for i, v := range out.Pix {
		if v != 120 {
			t.Fatalf("pixel %d = %d want 120", i, v)
		}
	}
}

func TestSharpenBoostsIsolatedPeak(t *testing.T) {
	src := raster.New(3, 3)
	for i := range src.Pix {
		src.Pix[i] = 10
	}
	src.Set(1, 1, 20, 20, 20)

	out, err := sharpen(context.Background(), src)
	if err != nil {
		t.Fatalf("sharpen returned error: %v", err)
	}
	// centre: 9*20 - 8*10 = 100; corner: 9*10 - (4*20 + 4*10) clamps to 0.
	if red, _, _ := out.At(1, 1); red != 100 {
		t.Fatalf("centre = %d want 100", red)
	}
	if red, _, _ := out.At(0, 0); red != 0 {
		t.Fatalf("corner = %d want 0", red)
	}
}

func TestScaleAbsSaturates(t *testing.T) {
	src := &raster.RGB{Width: 1, Height: 1, Pix: []uint8{0, 100, 250}}
	out, err := scaleAbs(context.Background(), src, 1.1, 10)
	if err != nil {
		t.Fatalf("scaleAbs returned error: %v", err)
	}
	// 250 -> 285 clamps to 255.
	want := []uint8{10, 120, 255}
	for i := range want {
		if out.Pix[i] != want[i] {
			t.Fatalf("sample %d = %d want %d", i, out.Pix[i], want[i])
		}
	}

	neg, err := scaleAbs(context.Background(), &raster.RGB{Width: 1, Height: 1, Pix: []uint8{10, 0, 0}}, -1, 0)
	if err != nil {
		t.Fatalf("scaleAbs returned error: %v", err)
	}
	if neg.Pix[0] != 10 {
		t.Fatalf("expected absolute value, got %d", neg.Pix[0])
	}
}

func TestReferenceApplyDoesNotMutateInput(t *testing.T) {
	src := raster.New(2, 2)
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 10)
	}
	before := src.Clone()

	backend := NewReference(DefaultParams())
	first, err := backend.Apply(context.Background(), src)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	second, err := backend.Apply(context.Background(), src)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	for i := range src.Pix {
		if src.Pix[i] != before.Pix[i] {
			t.Fatalf("input mutated at %d", i)
		}
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("non-deterministic output at %d", i)
		}
	}
}

func TestReferenceApplyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewReference(DefaultParams()).Apply(ctx, raster.New(2, 2)); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestReferenceApplyRejectsEmptyRaster(t *testing.T) {
	if _, err := NewReference(DefaultParams()).Apply(context.Background(), &raster.RGB{}); err == nil {
		t.Fatal("expected error for empty raster")
	}
}
