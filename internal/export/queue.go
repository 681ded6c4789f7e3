package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses
const (
	StatusQueued    = "queued"
	StatusExporting = "exporting"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
)

// Job is one queued export
type Job struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Filename  string    `json:"filename"`
	Size      int       `json:"size"`
	Retries   int       `json:"retries"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	data []byte
}

// Queue exports artifacts in the background with retry. It is used where
// the caller should not wait for a slow sink.
type Queue struct {
	jobs       []*Job
	mu         sync.Mutex
	sink       Sink
	maxRetries int
	retryDelay time.Duration
	wake       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewQueue creates a queue draining into sink and starts its worker
func NewQueue(sink Sink, maxRetries int, retryDelay time.Duration) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	if maxRetries < 1 {
		maxRetries = 1
	}

	q := &Queue{
		sink:       sink,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// Enqueue adds an artifact and returns the job ID
func (q *Queue) Enqueue(sessionID string, data []byte, filename string) string {
	q.mu.Lock()
	job := &Job{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Filename:  filename,
		Size:      len(data),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		data:      data,
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return job.ID
}

func (q *Queue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
		for q.processNextJob() {
		}
	}
}

// processNextJob runs one queued job and reports whether there was one
func (q *Queue) processNextJob() bool {
	q.mu.Lock()

	var job *Job
	for _, j := range q.jobs {
		if j.Status == StatusQueued {
			job = j
			job.Status = StatusExporting
			break
		}
	}

	q.mu.Unlock()

	if job == nil {
		return false
	}

	err := q.sink.Export(q.ctx, job.data, job.Filename)

	q.mu.Lock()
	defer q.mu.Unlock()

	if err != nil {
		job.Retries++
		job.Error = err.Error()

		if job.Retries >= q.maxRetries || q.ctx.Err() != nil {
			job.Status = StatusFailed
			job.data = nil
			fmt.Printf("❌ Export job %s failed after %d attempts: %v\n", job.ID, job.Retries, err)
		} else {
			job.Status = StatusQueued
			fmt.Printf("⚠️  Export job %s failed, retrying (%d/%d): %v\n",
				job.ID, job.Retries, q.maxRetries, err)
			q.mu.Unlock()
			select {
			case <-q.ctx.Done():
			case <-time.After(q.retryDelay):
			}
			q.mu.Lock()
		}
	} else {
		job.Status = StatusCompleted
		job.Error = ""
		job.data = nil
		fmt.Printf("✅ Export job %s completed (%s)\n", job.ID, job.Filename)
	}

	return true
}

// GetJob returns a copy of a job, or nil
func (q *Queue) GetJob(jobID string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == jobID {
			jobCopy := *job
			jobCopy.data = nil
			return &jobCopy
		}
	}

	return nil
}

// GetAllJobs returns copies of all jobs
func (q *Queue) GetAllJobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*Job, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobCopy.data = nil
		jobs[i] = &jobCopy
	}

	return jobs
}

// ClearCompleted drops completed jobs
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != StatusCompleted {
			filtered = append(filtered, job)
		}
	}

	q.jobs = filtered
}

// Stop stops the worker. Jobs still queued stay queued.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}
