// Package handlers provides the HTTP handlers for the ASCII art converter.
//
// It includes handlers for:
//   - Image uploads, converted synchronously
//   - Video uploads, converted in the background with status polling
//   - Downloads of rendered images and videos
//   - Tracked file listing and session presence over a websocket
//   - Health, readiness and version probes
package handlers
