package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrSafetyViolation = errors.New("writes are disabled")
	ErrUnknownProposal = errors.New("unknown or already-redeemed proposal")
	ErrDomainOperation = errors.New("domain operation failed")
	ErrAdapter         = errors.New("model invoke failed")
	ErrIterationLimit  = errors.New("iteration limit exceeded")
)

// KindOf maps a sentinel (possibly wrapped) onto its ToolError kind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrSafetyViolation):
		return KindSafetyViolation
	case errors.Is(err, ErrUnknownProposal):
		return KindUnknownProposal
	case errors.Is(err, ErrAdapter):
		return KindAdapter
	case errors.Is(err, ErrIterationLimit):
		return KindIterationLimit
	default:
		return KindDomainOperation
	}
}
