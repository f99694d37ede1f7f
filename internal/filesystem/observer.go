package filesystem

import "sync/atomic"

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem operation.
	// volume is the resolved volume label (e.g., "uploads", "outputs", "work").
	// operation is the fs operation type: "stat", "remove", "readdir".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// Retry-specific metrics for NFS resilience.
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

type observerHolder struct {
	o Observer
}

// defaultObserver is the package-level observer set at startup.
// If unset, metric recording is silently skipped (safe for tests).
var defaultObserver atomic.Pointer[observerHolder]

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver.Store(&observerHolder{o: o})
}

// observe returns the package-level observer, or nil.
func observe() Observer {
	if h := defaultObserver.Load(); h != nil {
		return h.o
	}
	return nil
}
