// Package jobs keeps the in-memory registry of conversion jobs.
//
// A job is created in the processing status when an upload is accepted. It
// moves through the pipeline stages while processing and leaves that status
// exactly once, to either completed or error. Jobs are never removed; the
// registry is lost on restart.
package jobs
