package events

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Job tracks one batch submission: its event history, live subscribers and
// cancellation flag. Jobs live until CleanupJob is called so late
// subscribers can still replay history after the batch finished.
type Job struct {
	ID string

	cancelRequested atomic.Bool

	mu           sync.Mutex
	history      []Event
	subscribers  map[string]chan Event
	completedIDs []string
}

// RequestCancel sets the cooperative cancellation flag. Running stage calls
// are not interrupted; workers check the flag at stage boundaries.
func (j *Job) RequestCancel() { j.cancelRequested.Store(true) }

// CancelRequested reports whether cancellation was requested.
func (j *Job) CancelRequested() bool { return j.cancelRequested.Load() }

// AddCompleted records a library track id finished during this run.
func (j *Job) AddCompleted(trackID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completedIDs = append(j.completedIDs, trackID)
}

// CompletedIDs returns a copy of the ids completed this run.
func (j *Job) CompletedIDs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.completedIDs))
	copy(out, j.completedIDs)
	return out
}

// History returns a copy of the retained event history.
func (j *Job) History() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, len(j.history))
	copy(out, j.history)
	return out
}

// Bus owns the job registry and fans events out to subscribers. All state
// is in-memory and process-local; a restart loses running jobs.
type Bus struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	historyLimit     int
	subscriberBuffer int
}

// NewBus creates a registry. Non-positive limits fall back to defaults.
func NewBus(historyLimit, subscriberBuffer int) *Bus {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = 200
	}
	return &Bus{
		jobs:             make(map[string]*Job),
		historyLimit:     historyLimit,
		subscriberBuffer: subscriberBuffer,
	}
}

// CreateJob registers a new job with empty history and no subscribers.
func (b *Bus) CreateJob() *Job {
	job := &Job{
		ID:          ksuid.New().String(),
		subscribers: make(map[string]chan Event),
	}

	b.mu.Lock()
	b.jobs[job.ID] = job
	b.mu.Unlock()

	return job
}

// GetJob looks up a job by id.
func (b *Bus) GetJob(id string) (*Job, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	job, ok := b.jobs[id]
	return job, ok
}

// RequestCancel flags the job for cancellation if it exists.
func (b *Bus) RequestCancel(id string) bool {
	job, ok := b.GetJob(id)
	if !ok {
		return false
	}
	job.RequestCancel()
	return true
}

// CleanupJob removes a job and closes its subscriber channels. Jobs are
// never removed implicitly.
func (b *Bus) CleanupJob(id string) {
	b.mu.Lock()
	job, ok := b.jobs[id]
	delete(b.jobs, id)
	b.mu.Unlock()

	if !ok {
		return
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	for id, ch := range job.subscribers {
		close(ch)
		delete(job.subscribers, id)
	}
}

// Broadcast appends the event to the job history (evicting the oldest entry
// past the cap) and enqueues it to every subscriber. A full subscriber
// queue drops the event for that subscriber only; production never blocks
// on a slow consumer.
func (b *Bus) Broadcast(job *Job, ev Event) {
	job.mu.Lock()
	defer job.mu.Unlock()

	job.history = append(job.history, ev)
	if len(job.history) > b.historyLimit {
		trim := len(job.history) - b.historyLimit
		job.history = append([]Event(nil), job.history[trim:]...)
	}

	for _, ch := range job.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop for this subscriber only
		}
	}
}

// Subscribe registers a bounded queue for the job and replays the current
// history into it before returning. Replay stops early if the queue fills.
func (b *Bus) Subscribe(job *Job) (string, <-chan Event) {
	subID := uuid.NewString()[:8]
	ch := make(chan Event, b.subscriberBuffer)

	job.mu.Lock()
	defer job.mu.Unlock()

replay:
	for _, ev := range job.history {
		select {
		case ch <- ev:
		default:
			break replay
		}
	}

	job.subscribers[subID] = ch
	return subID, ch
}

// Unsubscribe removes a subscriber queue. The job itself is untouched.
func (b *Bus) Unsubscribe(job *Job, subID string) {
	job.mu.Lock()
	defer job.mu.Unlock()
	if ch, ok := job.subscribers[subID]; ok {
		delete(job.subscribers, subID)
		close(ch)
	}
}
