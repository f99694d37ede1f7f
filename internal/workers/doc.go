/*
Package workers sizes worker pools for containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the container
CPU limit (Go 1.19+). Frame conversion is CPU-bound, so the video pipeline
sizes its per-job pool from GOMAXPROCS:

	n := workers.ForCPU(8) // at most 8, at most one per available CPU

Operators can pin the count with FRAME_WORKERS:

	env:
	- name: FRAME_WORKERS
	  value: "2"

Each video job gets its own pool, so the total number of render goroutines is
the pool size times the number of concurrently running jobs.
*/
package workers
