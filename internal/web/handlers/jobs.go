package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/sign-vision/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// RegenerateJob re-describes every stored sign video in the background.
// Status only becomes terminal in finish, after the runner has stopped
// writing to the store.
type RegenerateJob struct {
	EventBroadcaster

	ID              string            `json:"id"`
	Status          JobStatus         `json:"status"`
	Progress        int               `json:"progress"`
	Total           int               `json:"total"`
	Processed       int               `json:"processed"`
	Concurrency     int               `json:"concurrency"`
	CancelRequested bool              `json:"cancel_requested,omitempty"`
	Error           string            `json:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Result          *RegenerateResult `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *RegenerateJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel asks a pending or running job to stop. The job stays active until
// its runner finishes; the final "cancelled" event carries the partial
// result. It returns false when the job had already finished.
func (j *RegenerateJob) Cancel() bool {
	j.mu.Lock()
	if isJobTerminal(j.Status) {
		j.mu.Unlock()
		return false
	}
	j.CancelRequested = true
	j.mu.Unlock()

	j.cancelContext()
	return true
}

// cancelRequested reports whether Cancel was called before the job finished.
func (j *RegenerateJob) cancelRequested() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.CancelRequested
}

// finish moves the job to a terminal state.
func (j *RegenerateJob) finish(status JobStatus, result *RegenerateResult, message string) {
	now := time.Now()
	j.mu.Lock()
	j.Status = status
	j.CompletedAt = &now
	j.Result = result
	j.Error = message
	if status == JobStatusCompleted {
		j.Progress = 100
	}
	j.mu.Unlock()
}

// snapshot returns a copy safe to encode while the job keeps running.
func (j *RegenerateJob) snapshot() *RegenerateJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &RegenerateJob{
		ID:              j.ID,
		Status:          j.Status,
		Progress:        j.Progress,
		Total:           j.Total,
		Processed:       j.Processed,
		Concurrency:     j.Concurrency,
		CancelRequested: j.CancelRequested,
		Error:           j.Error,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		Result:          j.Result,
	}
}

// RegenerateResult represents the result of a regenerate job.
type RegenerateResult struct {
	Updated int        `json:"updated"`
	Errors  []string   `json:"errors,omitempty"`
	Usage   *UsageInfo `json:"usage,omitempty"`
}

// UsageInfo represents API usage information.
type UsageInfo struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// cancelContext cancels the runner's context, if it has started.
func (b *EventBroadcaster) cancelContext() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs. Finished jobs are kept for retention so
// clients can still read their result, then dropped.
type JobManager struct {
	jobs      map[string]*RegenerateJob
	retention time.Duration
	mu        sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*RegenerateJob),
		retention: constants.JobRetention,
	}
}

// CreateJob registers a new pending job unless another one is still active,
// in which case the active job is returned with ok false.
func (m *JobManager) CreateJob(id string, concurrency int) (job *RegenerateJob, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.jobs {
		if !isJobTerminal(existing.GetStatus()) {
			return existing, false
		}
	}

	job = &RegenerateJob{
		ID:          id,
		Status:      JobStatusPending,
		Concurrency: concurrency,
		StartedAt:   time.Now(),
	}
	m.jobs[id] = job
	return job, true
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RegenerateJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// expire removes a finished job once the retention period has passed.
func (m *JobManager) expire(id string) {
	time.AfterFunc(m.retention, func() {
		m.DeleteJob(id)
	})
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*RegenerateJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*RegenerateJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
