package db

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("db queue closed")

type DBTask struct {
	Exec func(*sql.DB) (interface{}, error)
	Resp chan DBResult
}

type DBResult struct {
	Data interface{}
	Err  error
}

// permanent marks an error that must not be retried, e.g. a missing row.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// DBQueue serializes all database access through a single worker goroutine.
// sqlite allows one writer at a time; busy errors are retried with a linear
// backoff.
type DBQueue struct {
	tasks      chan DBTask
	db         *sql.DB
	maxRetry   int
	retryDelay time.Duration
	testMode   bool

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDBQueue(db *sql.DB) *DBQueue {
	return newQueue(db, 100*time.Millisecond, false)
}

func NewDBQueueForTest(db *sql.DB) *DBQueue {
	return newQueue(db, time.Millisecond, true)
}

func newQueue(db *sql.DB, delay time.Duration, testMode bool) *DBQueue {
	q := &DBQueue{
		tasks:      make(chan DBTask, 100),
		db:         db,
		maxRetry:   3,
		retryDelay: delay,
		testMode:   testMode,
		done:       make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *DBQueue) Execute(task func(*sql.DB) (interface{}, error)) (interface{}, error) {
	resp := make(chan DBResult, 1)

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return nil, ErrQueueClosed
	}
	q.tasks <- DBTask{Exec: task, Resp: resp}
	q.mu.RUnlock()

	result := <-resp
	return result.Data, result.Err
}

// Run is Execute with a typed result.
func Run[T any](q *DBQueue, task func(*sql.DB) (T, error)) (T, error) {
	data, err := q.Execute(func(db *sql.DB) (interface{}, error) {
		return task(db)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return data.(T), nil
}

func (q *DBQueue) worker() {
	defer close(q.done)
	for task := range q.tasks {
		task.Resp <- q.executeWithRetry(task)
	}
}

func (q *DBQueue) executeWithRetry(task DBTask) DBResult {
	var lastErr error
	for attempt := 0; attempt < q.maxRetry; attempt++ {
		data, err := task.Exec(q.db)
		if err == nil {
			return DBResult{Data: data}
		}
		var p permanent
		if errors.As(err, &p) {
			return DBResult{Err: p.err}
		}
		lastErr = err
		if attempt < q.maxRetry-1 {
			if q.testMode {
				time.Sleep(q.retryDelay)
			} else {
				time.Sleep(time.Duration(attempt+1) * q.retryDelay)
			}
		}
	}
	return DBResult{Err: lastErr}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *DBQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	<-q.done
}

func (q *DBQueue) DB() *sql.DB {
	return q.db
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return permanent{err}
	}
	return err
}
