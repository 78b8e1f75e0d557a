// Package task runs simulations and optimizations as cancellable background
// jobs with coarse-grained progress reporting.
package task

// Callback is a function that reports progress during long operations.
// Parameters:
//   - current: Number of items completed
//   - total: Total number of items
//   - phase: Identifier of the current engine phase (e.g., "simulating")
//
// A nil Callback is valid and will be safely ignored by the Call() helper.
type Callback func(current, total int, phase string)

// Call safely invokes the callback if non-nil.
// This allows callers to pass progress updates without checking for nil.
func Call(cb Callback, current, total int, phase string) {
	if cb != nil {
		cb(current, total, phase)
	}
}

// Progress is a point-in-time snapshot of a task's progress.
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}
