package sampler

import "fmt"

// DecompositionError indicates that the covariance structure could not be
// Cholesky-factorized even after PSD repair. This is the one fatal numerical
// failure in the engine: the run aborts and the error is surfaced to the
// caller unchanged.
type DecompositionError struct {
	NumAssets int
	Reason    string
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("cholesky decomposition failed for %d-asset covariance: %s", e.NumAssets, e.Reason)
}
