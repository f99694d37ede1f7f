// Package session tracks client sessions and removes their files when the
// client goes away.
//
// A session is identified by the X-Session-Id header or sessionId query
// parameter, or by a fresh UUID when the client supplies neither. Every
// request refreshes its last-activity time. A session ends either when its
// presence connection closes and is not re-established within the grace
// period, or when it has been idle for the inactivity timeout. Both paths
// go through one expiry routine, so the owning files are cleaned exactly
// once.
package session
