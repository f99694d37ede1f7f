// Package lifecycle tracks on-disk artifacts and deletes them when they
// expire, when their owning session goes away or at shutdown.
//
// Every upload and output is registered with Track under the session that
// produced it. A background loop started with Start sweeps expired entries
// on an interval; SessionManager calls CleanupSession when a client leaves.
// Entries are claimed under the manager's mutex and the files are removed
// after the lock is released, so a sweep racing a session cleanup never
// deletes the same file twice. Deletion is best effort: errors are logged
// and the entry is dropped regardless.
package lifecycle
