package worldrag

import "github.com/worldrag/worldrag/errs"

// Sentinel errors and failure classification, re-exported from the leaf
// errs package so pipeline/retrieval can depend on the same identities
// without importing the root package back (avoiding an import cycle)
// while callers of this module still see one flat Err*/Classify surface,
// in the teacher's goreason.Err* style.

var (
	ErrBookNotFound            = errs.ErrBookNotFound
	ErrChapterNotFound         = errs.ErrChapterNotFound
	ErrEmptyChapterText        = errs.ErrEmptyChapterText
	ErrStatusConflict          = errs.ErrStatusConflict
	ErrValidation              = errs.ErrValidation
	ErrTransientUpstream       = errs.ErrTransientUpstream
	ErrGraphTransient          = errs.ErrGraphTransient
	ErrCircuitOpen             = errs.ErrCircuitOpen
	ErrCostCeilingExceeded     = errs.ErrCostCeilingExceeded
	ErrChapterFailedTerminally = errs.ErrChapterFailedTerminally
	ErrDownstreamUnknown       = errs.ErrDownstreamUnknown
	ErrNoRelevantContent       = errs.ErrNoRelevantContent
	ErrNotRelevantEnough       = errs.ErrNotRelevantEnough
	ErrStoreClosed             = errs.ErrStoreClosed
	ErrNoProviderForModel      = errs.ErrNoProviderForModel
)

// FailureClass classifies an error for the resilience layer (§7 taxonomy).
type FailureClass = errs.FailureClass

const (
	FailurePrecondition      = errs.FailurePrecondition
	FailureValidation        = errs.FailureValidation
	FailureTransient         = errs.FailureTransient
	FailureCircuitOpen       = errs.FailureCircuitOpen
	FailureCostCeiling       = errs.FailureCostCeiling
	FailureTerminal          = errs.FailureTerminal
	FailureDownstreamUnknown = errs.FailureDownstreamUnknown
)

// Classify maps an error to its FailureClass. See errs.Classify.
func Classify(err error) FailureClass { return errs.Classify(err) }
