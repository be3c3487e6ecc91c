package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rawconv/internal/enhance"
	"rawconv/internal/logging"
	"rawconv/internal/raster"
	"rawconv/internal/services"
)

// Decoder turns a source file into a raster.
type Decoder interface {
	Decode(ctx context.Context, path string) (*raster.RGB, error)
}

// Encoder writes a raster to path and returns the written size.
type Encoder interface {
	Encode(ctx context.Context, img *raster.RGB, path string) (int64, error)
}

// Converter processes a single WorkItem.
type Converter interface {
	Convert(ctx context.Context, item WorkItem, backend enhance.Backend) Outcome
}

// Pipeline is the decode, enhance, encode sequence applied to one item.
type Pipeline struct {
	decoder Decoder
	encoder Encoder
	logger  *slog.Logger
	now     func() time.Time
}

// NewPipeline wires the decode and encode collaborators.
func NewPipeline(decoder Decoder, encoder Encoder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		decoder: decoder,
		encoder: encoder,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		now:     time.Now,
	}
}

// Convert runs the three phases and always returns exactly one Outcome.
// Errors and panics raised by any phase are recorded on the Outcome with
// the phase in which they occurred.
func (p *Pipeline) Convert(ctx context.Context, item WorkItem, backend enhance.Backend) Outcome {
	ctx = services.WithSource(ctx, item.SourcePath)
	logger := logging.WithContext(ctx, p.logger)
	start := p.now()

	fail := func(err *PhaseError) Outcome {
		outcome := Outcome{
			Item:         item,
			FailurePhase: err.Phase,
			ErrorDetail:  err.Err.Error(),
			Elapsed:      p.now().Sub(start),
		}
		logger.Warn("item failed",
			logging.String(logging.FieldPhase, err.Phase.String()),
			logging.String(logging.FieldEventType, "item_failed"),
			logging.String(logging.FieldErrorHint, hintFor(err.Phase)),
			logging.String(logging.FieldImpact, "no output written for this file"),
			logging.String("error_kind", services.Kind(err.Err)),
			logging.Error(err.Err),
		)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return fail(&PhaseError{Phase: PhaseDecode, Err: err})
	}
	logger.Debug("item started", logging.String(logging.FieldBackend, backendName(backend)))

	var decoded *raster.RGB
	if perr := runPhase(ctx, PhaseDecode, func(ctx context.Context) error {
		img, err := p.decoder.Decode(ctx, item.SourcePath)
		if err != nil {
			return err
		}
		if err := img.Validate(); err != nil {
			return err
		}
		decoded = img
		return nil
	}); perr != nil {
		return fail(perr)
	}

	var enhanced *raster.RGB
	if perr := runPhase(ctx, PhaseEnhance, func(ctx context.Context) error {
		if backend == nil {
			return fmt.Errorf("no enhancement backend selected")
		}
		img, err := backend.Apply(ctx, decoded)
		if err != nil {
			return err
		}
		if err := img.Validate(); err != nil {
			return err
		}
		enhanced = img
		return nil
	}); perr != nil {
		return fail(perr)
	}

	var written int64
	if perr := runPhase(ctx, PhaseEncode, func(ctx context.Context) error {
		size, err := p.encoder.Encode(ctx, enhanced, item.OutputPath)
		if err != nil {
			return err
		}
		if size < 0 {
			return fmt.Errorf("encoder reported negative size %d", size)
		}
		written = size
		return nil
	}); perr != nil {
		return fail(perr)
	}

	outcome := Outcome{
		Item:            item,
		Succeeded:       true,
		OutputSizeBytes: uint64(written),
		Elapsed:         p.now().Sub(start),
	}
	attrs := []logging.Attr{
		logging.Duration("elapsed", outcome.Elapsed),
		logging.Int64("output_bytes", written),
		logging.String("output", item.OutputPath),
	}
	if pct, ok := outcome.SizeDelta(); ok {
		attrs = append(attrs, logging.String("size_delta", FormatDelta(pct)))
	}
	logger.Info("item converted", logging.Args(attrs...)...)
	return outcome
}

// runPhase executes fn and converts an error or panic into a PhaseError.
func runPhase(ctx context.Context, phase FailurePhase, fn func(context.Context) error) (perr *PhaseError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &PhaseError{Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	ctx = services.WithPhase(ctx, phase.String())
	if err := fn(ctx); err != nil {
		return &PhaseError{Phase: phase, Err: err}
	}
	return nil
}

func hintFor(phase FailurePhase) string {
	switch phase {
	case PhaseDecode:
		return "check the file is a supported RAW format and the decoder is installed"
	case PhaseEnhance:
		return "retry with --backend reference or --no-enhance"
	case PhaseEncode:
		return "check free space and permissions in the output directory"
	default:
		return "check logs for details"
	}
}

func backendName(b enhance.Backend) string {
	if b == nil {
		return ""
	}
	return b.Name()
}
