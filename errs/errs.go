// Package errs holds the sentinel errors and failure-classification
// taxonomy shared across package boundaries (§7). It is a leaf package
// so that pipeline, retrieval, and the root worldrag package can all
// depend on it without an import cycle; the root package re-exports
// these names for the public API (mirroring the teacher's flat
// goreason.Err* surface).
package errs

import "errors"

var (
	// Pre-condition errors (§7): surfaced synchronously, never retried.
	ErrBookNotFound     = errors.New("worldrag: book not found")
	ErrChapterNotFound  = errors.New("worldrag: chapter not found")
	ErrEmptyChapterText = errors.New("worldrag: chapter text is empty")
	ErrStatusConflict   = errors.New("worldrag: status conflict")

	// Validation errors.
	ErrValidation = errors.New("worldrag: entity failed validation")

	// Transient upstream errors (§7): retried with jittered backoff.
	ErrTransientUpstream = errors.New("worldrag: transient upstream error")
	ErrGraphTransient    = errors.New("worldrag: transient graph store error")

	// Provider open-circuit.
	ErrCircuitOpen = errors.New("worldrag: circuit breaker open")

	// Cost ceiling.
	ErrCostCeilingExceeded = errors.New("worldrag: cost ceiling exceeded")

	// Terminal failures.
	ErrChapterFailedTerminally = errors.New("worldrag: chapter failed terminally")

	// Downstream unknown.
	ErrDownstreamUnknown = errors.New("worldrag: unknown downstream failure")

	// Retrieval degenerate paths (§4.12) — not failures, but distinguishable.
	ErrNoRelevantContent  = errors.New("worldrag: no relevant content found")
	ErrNotRelevantEnough  = errors.New("worldrag: not relevant enough")
	ErrStoreClosed        = errors.New("worldrag: store is closed")
	ErrNoProviderForModel = errors.New("worldrag: no provider configured for model")
)

// FailureClass classifies an error for the resilience layer (§7 taxonomy),
// deciding whether a retry is eligible and how a chapter failure propagates.
type FailureClass int

const (
	FailurePrecondition FailureClass = iota
	FailureValidation
	FailureTransient
	FailureCircuitOpen
	FailureCostCeiling
	FailureTerminal
	FailureDownstreamUnknown
)

// Classify maps an error to its FailureClass by sentinel-error membership.
// Unrecognized errors classify as FailureDownstreamUnknown (§7 "Downstream
// unknown: unknown exceptions in a pass are logged with context").
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrChapterNotFound),
		errors.Is(err, ErrEmptyChapterText), errors.Is(err, ErrStatusConflict):
		return FailurePrecondition
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrTransientUpstream), errors.Is(err, ErrGraphTransient):
		return FailureTransient
	case errors.Is(err, ErrCircuitOpen):
		return FailureCircuitOpen
	case errors.Is(err, ErrCostCeilingExceeded):
		return FailureCostCeiling
	case errors.Is(err, ErrChapterFailedTerminally):
		return FailureTerminal
	default:
		return FailureDownstreamUnknown
	}
}

// Retryable reports whether a FailureClass is eligible for the retry
// wrapper (§4.10): only transient upstream/graph errors are retried;
// open-circuit rejections fail fast per-call and are not retried at that
// layer (§7: "Treated like a transient failure at the pipeline level").
func (c FailureClass) Retryable() bool {
	return c == FailureTransient
}
