/*
Package filesystem provides resilient filesystem operations with automatic retry
logic for NFS stale file handle errors.

# Purpose

DATA_DIR is frequently a network mount in container deployments. The sweeper,
session cleanup and the video pipeline all delete or list files there, and an
ESTALE (errno 116) during those calls is transient. This package wraps os.Stat,
os.Remove, os.RemoveAll and os.ReadDir with a bounded exponential backoff for
that one error; every other error returns immediately.

# Usage

	if err := filesystem.RemoveWithRetry(path, filesystem.DefaultRetryConfig()); err != nil {
	    if !errors.Is(err, os.ErrNotExist) {
	        logging.Warn("delete %s: %v", path, err)
	    }
	}

	entries, err := filesystem.ReadDirWithRetry(framesDir, filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

# Metrics

Metrics are reported through an [Observer] registered with SetObserver. The
metrics package provides the Prometheus implementation; when no observer is
set (tests, the CLI) recording is skipped. Paths are labelled with a volume
name ("uploads", "outputs", "work") via a [VolumeResolver].
*/
package filesystem
