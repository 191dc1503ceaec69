package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sync task kinds
const (
	taskMarkLearned    = "mark_learned"
	taskAddBookmark    = "add_bookmark"
	taskRemoveBookmark = "remove_bookmark"
	taskUpdateProfile  = "update_profile"
)

// syncTask is one outbound call mirroring a local mutation
type syncTask struct {
	kind   string
	cardID string
	token  string
	run    func(ctx context.Context) error
}

// syncQueue runs each task once on its own goroutine with a bounded timeout.
// Failures are handed to onError and never retried.
type syncQueue struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	timeout time.Duration
	logger  *zap.Logger
	onError func(task syncTask, err error)
}

func newSyncQueue(timeout time.Duration, logger *zap.Logger, onError func(syncTask, error)) *syncQueue {
	return &syncQueue{
		timeout: timeout,
		logger:  logger,
		onError: onError,
	}
}

// enqueue starts the task unless the queue is closed
func (q *syncQueue) enqueue(task syncTask) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("sync queue closed, dropping task",
			zap.String("task", task.kind),
			zap.String("card_id", task.cardID),
		)
		return false
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()

		if err := task.run(ctx); err != nil {
			q.logger.Warn("failed to sync",
				zap.String("task", task.kind),
				zap.String("card_id", task.cardID),
				zap.Error(err),
			)
			if q.onError != nil {
				q.onError(task, err)
			}
		}
	}()
	return true
}

// Wait blocks until every started task has finished
func (q *syncQueue) Wait() {
	q.wg.Wait()
}

// Close stops accepting tasks and waits for the running ones
func (q *syncQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}
