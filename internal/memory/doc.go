// Package memory keeps the video pipeline inside its container's memory.
//
// Frame conversion decodes and upscales full-size images on every worker of
// every running job, so a few concurrent uploads can outgrow a container
// limit long before the CPU is saturated. The package does two things:
//
//   - ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//     (Kubernetes Downward API) unless GOMEMLIMIT is already set, leaving
//     headroom for ffmpeg and libvips outside the Go heap.
//   - Monitor samples the heap and pauses frame workers via WaitIfPaused when
//     usage crosses the critical mark, resuming once it drops below the high
//     mark. The gap between the two marks keeps it from flapping.
//
// Without any limit the monitor stays idle and WaitIfPaused never blocks.
package memory
