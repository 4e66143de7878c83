package services

import (
	"context"
	"sync"
	"time"

	"warmwall/internal/logging"
	"warmwall/internal/metrics"
)

const taskTimeout = 5 * time.Second

type task struct {
	name string
	key  string
	run  func(ctx context.Context) error
}

// TaskQueue 后台副作用队列（活跃时间、浏览数），单 worker 顺序执行
// 任务失败只记日志，不影响请求本身
type TaskQueue struct {
	queue   chan task
	pending map[string]bool
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

func NewTaskQueue(size int) *TaskQueue {
	if size <= 0 {
		size = 1000
	}
	q := &TaskQueue{
		queue:   make(chan task, size), // 缓冲队列，防止阻塞请求
		pending: make(map[string]bool),
		done:    make(chan struct{}),
	}
	go q.worker()
	return q
}

// Dispatch enqueues fn without blocking. It returns false when the task was dropped.
func (q *TaskQueue) Dispatch(name string, fn func(ctx context.Context) error) bool {
	return q.enqueue(task{name: name, run: fn})
}

// DispatchOnce is Dispatch with dedupe: a task whose key is already queued is skipped.
func (q *TaskQueue) DispatchOnce(name, key string, fn func(ctx context.Context) error) bool {
	return q.enqueue(task{name: name, key: key, run: fn})
}

func (q *TaskQueue) enqueue(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.BackgroundTasks.WithLabelValues(t.name, "dropped").Inc()
		return false
	}
	if t.key != "" {
		if q.pending[t.key] {
			// 已在队列中，跳过
			metrics.BackgroundTasks.WithLabelValues(t.name, "deduped").Inc()
			return true
		}
		q.pending[t.key] = true
	}

	select {
	case q.queue <- t:
		return true
	default:
		if t.key != "" {
			delete(q.pending, t.key)
		}
		metrics.BackgroundTasks.WithLabelValues(t.name, "dropped").Inc()
		logging.Warn().Str("task", t.name).Msg("task queue full, dropping task")
		return false
	}
}

func (q *TaskQueue) worker() {
	defer close(q.done)
	for t := range q.queue {
		if t.key != "" {
			q.mu.Lock()
			delete(q.pending, t.key)
			q.mu.Unlock()
		}
		q.run(t)
	}
}

func (q *TaskQueue) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	if err := t.run(ctx); err != nil {
		metrics.BackgroundTasks.WithLabelValues(t.name, "error").Inc()
		logging.Warn().Err(err).Str("task", t.name).Msg("background task failed")
		return
	}
	metrics.BackgroundTasks.WithLabelValues(t.name, "ok").Inc()
}

// Close stops accepting tasks and waits until the queued ones have run.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()
	<-q.done
}
