// Package rawdecode turns camera RAW files into RGB rasters by running an
// external dcraw-compatible decoder and parsing the TIFF it writes to stdout.
package rawdecode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/image/tiff"

	"rawconv/internal/raster"
	"rawconv/internal/services"
)

// DefaultArgs requests TIFF on stdout using the camera white balance.
var DefaultArgs = []string{"-c", "-w", "-T"}

// Decoder runs a dcraw-compatible binary.
type Decoder struct {
	Binary string
	Args   []string
	// Timeout bounds a single invocation; zero means no deadline beyond ctx.
	Timeout time.Duration
}

// New returns a Decoder for the given binary and flags.
func New(binary string, args []string, timeout time.Duration) *Decoder {
	return &Decoder{Binary: binary, Args: append([]string(nil), args...), Timeout: timeout}
}

// Decode reads path and returns its 8-bit RGB rendering.
func (d *Decoder) Decode(ctx context.Context, path string) (*raster.RGB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "rawdecode", "decode", "empty source path", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "rawdecode", "stat source", path, err)
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrValidation, "rawdecode", "stat source", "not a regular file: "+path, nil)
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	binary := strings.TrimSpace(d.Binary)
	if binary == "" {
		binary = "dcraw"
	}
	args := d.Args
	if len(args) == 0 {
		args = DefaultArgs
	}
	cmdArgs := append(append([]string(nil), args...), path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, cmdArgs...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, services.Wrap(services.ErrTimeout, "rawdecode", "run decoder", binary, ctxErr)
			}
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "rawdecode", "run decoder", detail(binary, stderr.String()), err)
	}
	if stdout.Len() == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "rawdecode", "run decoder", detail(binary, "no image data on stdout"), nil)
	}

	img, err := tiff.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse decoder output: %w", err)
	}
	return raster.FromImage(img)
}

func detail(binary, msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return binary
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return binary + ": " + msg
}
