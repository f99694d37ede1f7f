// Package transcoder wraps the ffmpeg and ffprobe binaries used by the video
// pipeline.
//
// It supports:
//   - Probing a container for its video and audio streams
//   - Extracting the audio track to MP3
//   - Sampling frames at a fixed rate into numbered PNG files
//   - Muxing numbered frames and an optional audio track into an H.264 MP4
//
// Every ffmpeg invocation is tied to a context and registered while it runs,
// so Cleanup can kill outstanding processes on shutdown. Failures wrap
// apperr.ErrTranscodeFailure and carry ffmpeg's stderr.
package transcoder
