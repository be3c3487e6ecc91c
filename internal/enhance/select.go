package enhance

import (
	"fmt"
	"log/slog"
	"strings"

	"rawconv/internal/logging"
)

// Modes accepted by Select.
const (
	ModeAuto        = "auto"
	ModeReference   = NameReference
	ModeAccelerated = NameAccelerated
)

// Options configures backend selection.
type Options struct {
	// Mode is auto, reference, or accelerated.
	Mode    string
	Enabled bool
	Params  Params
}

// Capability is the outcome of probing for the accelerated backend.
type Capability struct {
	Available bool
	Detail    string
}

// acceleratedProbe and newAccelerated are package-level so tests can simulate
// hosts with and without OpenCV.
var (
	acceleratedProbe = probeAccelerated
	newAccelerated   = NewAccelerated
)

// SetProbeForTests overrides the accelerated capability probe during tests.
func SetProbeForTests(fn func() (bool, string)) func() {
	previous := acceleratedProbe
	acceleratedProbe = fn
	return func() {
		acceleratedProbe = previous
	}
}

// SetAcceleratedForTests overrides the accelerated backend constructor during tests.
func SetAcceleratedForTests(fn func(Params) (Backend, error)) func() {
	previous := newAccelerated
	newAccelerated = fn
	return func() {
		newAccelerated = previous
	}
}

// Probe reports whether the accelerated backend can run on this host. Any
// panic raised while probing is reported as unavailable.
func Probe() (capability Capability) {
	defer func() {
		if r := recover(); r != nil {
			capability = Capability{Available: false, Detail: fmt.Sprintf("probe panicked: %v", r)}
		}
	}()
	ok, detail := acceleratedProbe()
	return Capability{Available: ok, Detail: detail}
}

// Select picks the backend for a run. It never fails: when the accelerated
// backend is requested or auto-detected but cannot be used, Reference is
// returned and a warning is logged.
func Select(opts Options, logger *slog.Logger) Backend {
	logger = logging.NewComponentLogger(logger, "enhance")
	if !opts.Enabled {
		logger.Info("enhancement disabled", logging.String(logging.FieldBackend, NameNone))
		return None{}
	}

	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	if mode == "" {
		mode = ModeAuto
	}
	reference := NewReference(opts.Params)
	if mode == ModeReference {
		logger.Info("enhancement backend selected",
			logging.String(logging.FieldBackend, NameReference),
			logging.String("reason", "requested"),
		)
		return reference
	}

	capability := Probe()
	if !capability.Available {
		logFallback(logger, mode, capability.Detail)
		return reference
	}

	backend, err := buildAccelerated(opts.Params)
	if err != nil {
		logFallback(logger, mode, err.Error())
		return reference
	}
	logger.Info("enhancement backend selected",
		logging.String(logging.FieldBackend, backend.Name()),
		logging.String("reason", capability.Detail),
	)
	return backend
}

func buildAccelerated(p Params) (backend Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend, err = nil, fmt.Errorf("accelerated constructor panicked: %v", r)
		}
	}()
	backend, err = newAccelerated(p)
	if err == nil && backend == nil {
		err = fmt.Errorf("accelerated constructor returned no backend")
	}
	return backend, err
}

func logFallback(logger *slog.Logger, mode, detail string) {
	if mode == ModeAccelerated {
		logging.WarnWithContext(logger, "accelerated backend unavailable; using reference filters", "backend_fallback",
			logging.String(logging.FieldBackend, NameReference),
			logging.String("probe_detail", detail),
			logging.String(logging.FieldImpact, "enhancement runs on the CPU reference implementation"),
			logging.String(logging.FieldErrorHint, "install OpenCV and rebuild with -tags gocv"),
		)
		return
	}
	logger.Info("enhancement backend selected",
		logging.String(logging.FieldBackend, NameReference),
		logging.String("reason", detail),
	)
}
