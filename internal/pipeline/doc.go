// Package pipeline converts a video into an ASCII-art video.
//
// A job runs in its own working directory, <workRoot>/<jobID>/:
//
//	frames/         frames sampled from the source at a fixed rate
//	ascii_frames/   the same frames rendered as ASCII art
//	audio.mp3       the source soundtrack, when it has one
//
// Audio and frame extraction run concurrently. Every frame is then rendered
// by a bounded group of workers, and the rendered frames are muxed with the
// audio into an MP4 that is renamed onto the output path only when it is
// complete. The working directory is removed whether the job succeeds or
// not. A missing or unreadable audio track only produces a silent video.
package pipeline
