package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// JobHandler processes one job end-to-end.
type JobHandler func(ctx context.Context, job models.DownloadJob)

// Queue is an unbounded FIFO of download jobs drained by a single worker.
type Queue struct {
	mu     sync.Mutex
	jobs   []models.DownloadJob
	busy   bool
	closed bool
	notify chan struct{}
	logger *log.Logger
}

// NewQueue creates an empty queue.
func NewQueue(logger *log.Logger) *Queue {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		logger: shared.WithLogger(logger, "component", "queue"),
	}
}

// Enqueue appends job and returns how many jobs will run before it.
func (q *Queue) Enqueue(job models.DownloadJob) (int, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, shared.ErrQueueClosed
	}
	ahead := len(q.jobs)
	if q.busy {
		ahead++
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return ahead, nil
}

// Len reports jobs waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting new jobs. Jobs already queued are still handed to the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Run is the worker loop. It blocks until ctx is done, running one job at a time in FIFO order.
func (q *Queue) Run(ctx context.Context, handle JobHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.notify:
				continue
			}
		}

		q.process(ctx, job, handle)
	}
}

// Drain runs queued jobs until the queue is empty, then returns.
func (q *Queue) Drain(ctx context.Context, handle JobHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, ok := q.next()
		if !ok {
			return nil
		}
		q.process(ctx, job, handle)
	}
}

func (q *Queue) next() (models.DownloadJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return models.DownloadJob{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = models.DownloadJob{}
	q.jobs = q.jobs[1:]
	q.busy = true
	return job, true
}

// process runs handle and recovers a panic so the worker keeps draining.
func (q *Queue) process(ctx context.Context, job models.DownloadJob, handle JobHandler) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", "job", job.ID, "conversation", job.ConversationID,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
	}()

	q.logger.Debug("job started", "job", job.ID, "tracks", len(job.Tracks))
	handle(ctx, job)
	q.logger.Debug("job done", "job", job.ID)
}
