package rawdecode_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rawconv/internal/rawdecode"
	"rawconv/internal/services"
	"rawconv/internal/testsupport"
)

func TestDecodeParsesDecoderOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.nef")
	testsupport.WriteTIFF(t, src, 8, 6)

	decoder := rawdecode.New(testsupport.WriteStubDecoder(t, dir), nil, 0)
	img, err := decoder.Decode(context.Background(), src)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if img.Width != 8 || img.Height != 6 {
		t.Fatalf("unexpected dimensions: %dx%d", img.Width, img.Height)
	}
	if red, _, _ := img.At(7, 0); red != 255 {
		t.Fatalf("unexpected red at right edge: %d", red)
	}
}

func TestDecodeRejectsCorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.cr2")
	testsupport.WriteFile(t, src, 512)

	decoder := rawdecode.New(testsupport.WriteStubDecoder(t, dir), nil, 0)
	if _, err := decoder.Decode(context.Background(), src); err == nil {
		t.Fatal("expected error for corrupt source")
	}
}

func TestDecodeMissingSourceIsNotFound(t *testing.T) {
	dir := t.TempDir()
	decoder := rawdecode.New(testsupport.WriteStubDecoder(t, dir), nil, 0)

	_, err := decoder.Decode(context.Background(), filepath.Join(dir, "missing.arw"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecodeReportsDecoderFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.dng")
	testsupport.WriteTIFF(t, src, 2, 2)

	decoder := rawdecode.New(testsupport.WriteFailingDecoder(t, dir), nil, 0)
	_, err := decoder.Decode(context.Background(), src)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestDecodeMissingBinary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.orf")
	testsupport.WriteTIFF(t, src, 2, 2)

	decoder := rawdecode.New(filepath.Join(dir, "no-such-dcraw"), nil, time.Second)
	if _, err := decoder.Decode(context.Background(), src); err == nil {
		t.Fatal("expected error for missing decoder binary")
	}
}

func TestDecodeHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.raf")
	testsupport.WriteTIFF(t, src, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	decoder := rawdecode.New(testsupport.WriteStubDecoder(t, dir), nil, 0)
	if _, err := decoder.Decode(ctx, src); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
