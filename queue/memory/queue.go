package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/queue"
)

var ErrConsumerRegistered = errors.New("consumer already registered")

type Config struct {
	MaxDeliver int
	Buffer     int
}

// NewQueue builds an in-process queue with the same delivery contract as the
// JetStream implementation: at-least-once handling with bounded redelivery,
// exhausted jobs moved to a dead-letter list. Used in tests and single-node
// runs without a NATS server.
func NewQueue(cfg Config) *Queue {
	if cfg.MaxDeliver < 1 {
		cfg.MaxDeliver = 3
	}

	if cfg.Buffer < 1 {
		cfg.Buffer = 64
	}

	return &Queue{
		cfg:  cfg,
		jobs: make(chan delivery, cfg.Buffer),
		done: make(chan struct{}),
		log:  zap.L().With(zap.String("queue", "memory")),
	}
}

type delivery struct {
	job      queue.Job
	attempts int
}

type Queue struct {
	cfg  Config
	jobs chan delivery
	done chan struct{}
	once sync.Once
	log  *zap.Logger

	mu          sync.Mutex
	consuming   bool
	deadLetters []queue.Job
}

func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	select {
	case <-q.done:
		return queue.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- delivery{job: job}:
		return nil
	}
}

func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	q.mu.Lock()
	if q.consuming {
		q.mu.Unlock()
		return ErrConsumerRegistered
	}
	q.consuming = true
	q.mu.Unlock()

	go q.loop(ctx, handler)

	return nil
}

func (q *Queue) loop(ctx context.Context, handler queue.Handler) {
	for {
		select {
		case <-q.done:
			return
		case <-ctx.Done():
			return
		case d := <-q.jobs:
			d.attempts++

			err := handler(ctx, d.job)
			if err == nil {
				continue
			}

			q.log.Error(err.Error(),
				zap.String("collection_id", d.job.CollectionID),
				zap.Int("attempts", d.attempts),
			)

			if d.attempts >= q.cfg.MaxDeliver {
				q.deadLetter(d.job)
				continue
			}

			select {
			case q.jobs <- d:
			default:
				// Buffer full. Requeue from a goroutine so the loop
				// keeps draining; the job keeps its remaining retry
				// budget instead of being dead-lettered early.
				go func() {
					select {
					case q.jobs <- d:
					case <-q.done:
					case <-ctx.Done():
					}
				}()
			}
		}
	}
}

func (q *Queue) deadLetter(job queue.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.deadLetters = append(q.deadLetters, job)
}

// DeadLetters returns the jobs that exhausted their delivery budget.
func (q *Queue) DeadLetters() []queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]queue.Job, len(q.deadLetters))
	copy(jobs, q.deadLetters)

	return jobs
}

func (q *Queue) Close() error {
	q.once.Do(func() {
		close(q.done)
	})

	return nil
}
