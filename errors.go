package vecquiz

import "github.com/kailas-cloud/vecquiz/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrVectorDimMismatch = domain.ErrVectorDimMismatch
	ErrEmptyCandidates   = domain.ErrEmptyCandidates
	ErrInvalidVector     = domain.ErrInvalidVector
	ErrUnknownMetric     = domain.ErrUnknownMetric
)

// DimMismatchError carries the sizes of a rejected vector.
type DimMismatchError = domain.DimMismatchError
