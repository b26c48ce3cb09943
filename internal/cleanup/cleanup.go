// internal/cleanup/cleanup.go
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/quasarhq/quasar-backend/internal/logger"
)

var customLog = logger.NewLogger()

// Task is one deferred best-effort job. A failing task is logged and
// dropped, never retried: everything queued here is advisory tidy-up
// whose absence must not break correctness.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs deferred cleanup tasks on a single background goroutine.
// Callers enqueue after their own transaction has committed, so a task
// never observes half-applied state.
type Queue struct {
	tasks   chan Task
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

// NewQueue starts the worker. perTaskTimeout bounds each task; zero
// means 30 seconds.
func NewQueue(buffer int, perTaskTimeout time.Duration) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	if perTaskTimeout <= 0 {
		perTaskTimeout = 30 * time.Second
	}
	q := &Queue{
		tasks:   make(chan Task, buffer),
		timeout: perTaskTimeout,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := task.Run(ctx); err != nil {
			customLog.Warnf("Cleanup: task %q failed: %v", task.Name, err)
		}
		cancel()
	}
}

// Enqueue hands a task to the worker. When the queue is full the task
// is dropped with a warning instead of blocking the request path.
func (q *Queue) Enqueue(task Task) {
	select {
	case q.tasks <- task:
	default:
		customLog.Warnf("Cleanup: queue full, dropping task %q", task.Name)
	}
}

// Close stops accepting tasks and waits for the in-flight ones.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.tasks)
	})
	q.wg.Wait()
}
