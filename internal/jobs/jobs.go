package jobs

import (
	"sync"
	"time"

	"asciier/internal/logging"
)

// Kind identifies what a job converts.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Status is the externally visible state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusUnknown    Status = "unknown"
)

// Stage is the pipeline step a processing job is in.
type Stage string

const (
	StageQueued           Stage = "queued"
	StageExtractingAudio  Stage = "extracting-audio"
	StageExtractingFrames Stage = "extracting-frames"
	StageConvertingFrames Stage = "converting-frames"
	StageMuxing           Stage = "muxing"
	StageCompleted        Stage = "completed"
	StageError            Stage = "error"
)

// Job is a snapshot of a conversion job.
type Job struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Status      Status    `json:"status"`
	Stage       Stage     `json:"stage"`
	StartTime   time.Time `json:"startTime"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	OutputPath  string    `json:"-"`
	Error       string    `json:"error,omitempty"`
}

// Counts holds the number of jobs per status.
type Counts struct {
	Processing int
	Completed  int
	Failed     int
}

// Tracker is a concurrency-safe job registry.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a new processing job. Creating an id that already exists
// replaces the earlier record.
func (t *Tracker) Create(id string, kind Kind) Job {
	job := &Job{
		ID:        id,
		Kind:      kind,
		Status:    StatusProcessing,
		Stage:     StageQueued,
		StartTime: t.now(),
	}

	t.mu.Lock()
	t.jobs[id] = job
	t.mu.Unlock()

	logging.Job(id).Debug("created %s job", kind)
	return *job
}

// SetStage records the current stage of a processing job. It is a no-op
// for unknown or finished jobs.
func (t *Tracker) SetStage(id string, stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[id]; ok && job.Status == StatusProcessing {
		job.Stage = stage
	}
}

// Complete moves a processing job to completed. It returns false if the job
// is unknown or already finished.
func (t *Tracker) Complete(id, outputPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return false
	}
	job.Status = StatusCompleted
	job.Stage = StageCompleted
	job.OutputPath = outputPath
	job.CompletedAt = t.now()
	return true
}

// Fail moves a processing job to error. It returns false if the job is
// unknown or already finished.
func (t *Tracker) Fail(id, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return false
	}
	job.Status = StatusError
	job.Stage = StageError
	job.Error = message
	job.CompletedAt = t.now()
	return true
}

// Get returns a copy of the job. Unknown ids return a Job with
// StatusUnknown and false.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return Job{ID: id, Status: StatusUnknown}, false
	}
	return *job, true
}

// Counts returns the number of jobs in each status.
func (t *Tracker) Counts() Counts {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var c Counts
	for _, job := range t.jobs {
		switch job.Status {
		case StatusProcessing:
			c.Processing++
		case StatusCompleted:
			c.Completed++
		case StatusError:
			c.Failed++
		}
	}
	return c
}
