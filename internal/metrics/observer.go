package metrics

import "asciier/internal/filesystem"

// knownVolumes bounds the volume label. Anything the resolver could not
// place under DATA_DIR is reported as "unknown".
var knownVolumes = map[string]bool{"uploads": true, "outputs": true, "work": true}

func volumeLabel(volume string) string {
	if knownVolumes[volume] {
		return volume
	}
	return "unknown"
}

// fsObserver feeds filesystem retry and timing events into the
// asciier_filesystem_* series.
type fsObserver struct{}

// NewFilesystemObserver returns the observer registered with
// filesystem.SetObserver at startup.
func NewFilesystemObserver() filesystem.Observer {
	return fsObserver{}
}

func (fsObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	volume = volumeLabel(volume)
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (fsObserver) ObserveRetryAttempt(op, volume string) {
	FilesystemRetryAttempts.WithLabelValues(op, volumeLabel(volume)).Inc()
}

func (fsObserver) ObserveRetrySuccess(op, volume string) {
	FilesystemRetrySuccess.WithLabelValues(op, volumeLabel(volume)).Inc()
}

func (fsObserver) ObserveRetryFailure(op, volume string) {
	FilesystemRetryFailures.WithLabelValues(op, volumeLabel(volume)).Inc()
}

func (fsObserver) ObserveRetryDuration(op, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(op, volumeLabel(volume)).Observe(durationSeconds)
}

// ObserveStaleError counts ESTALE, which shows up when DATA_DIR is an NFS
// share and another pod removed the file.
func (fsObserver) ObserveStaleError(op, volume string) {
	FilesystemStaleErrors.WithLabelValues(op, volumeLabel(volume)).Inc()
}
