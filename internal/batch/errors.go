package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrGateRefused aborts a batch before any item is enumerated or converted.
	ErrGateRefused = errors.New("preflight gate refused batch")

	ErrDecode  = errors.New("decode failed")
	ErrEnhance = errors.New("enhance failed")
	ErrEncode  = errors.New("encode failed")

	// ErrUnexpectedWorkerFault marks a panic that escaped Convert.
	ErrUnexpectedWorkerFault = errors.New("unexpected worker fault")
)

// PhaseError ties a conversion failure to the phase that produced it.
type PhaseError struct {
	Phase FailurePhase
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Err == nil {
		return phaseSentinel(e.Phase).Error()
	}
	return fmt.Sprintf("%s: %v", phaseSentinel(e.Phase), e.Err)
}

// Unwrap exposes both the phase sentinel and the underlying cause.
func (e *PhaseError) Unwrap() []error {
	if e.Err == nil {
		return []error{phaseSentinel(e.Phase)}
	}
	return []error{phaseSentinel(e.Phase), e.Err}
}

func phaseSentinel(p FailurePhase) error {
	switch p {
	case PhaseDecode:
		return ErrDecode
	case PhaseEnhance:
		return ErrEnhance
	case PhaseEncode:
		return ErrEncode
	default:
		return ErrUnexpectedWorkerFault
	}
}

// gateRefused wraps ErrGateRefused with the gate's explanation.
func gateRefused(message string) error {
	if message == "" {
		return ErrGateRefused
	}
	return fmt.Errorf("%w: %s", ErrGateRefused, message)
}
