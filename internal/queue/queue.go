package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"danji/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// RecordQueue is an in-memory queue of flat-record batches between the
// crawler and the persistence processors.
type RecordQueue struct {
	items    chan []models.FlatRecord
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]models.FlatRecord) error
}

// NewRecordQueue creates a new record queue with the specified buffer size
func NewRecordQueue(bufferSize int, logger *logrus.Logger) *RecordQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &RecordQueue{
		items:    make(chan []models.FlatRecord, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]models.FlatRecord) error, 0),
	}
}

// Push adds a batch of records to the queue
func (q *RecordQueue) Push(records []models.FlatRecord) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- records:
		q.logger.WithField("batch_size", len(records)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume lets the queue act as a crawler sink: each finished scope becomes
// one batch. A full queue is logged and dropped rather than blocking the
// crawl; the CSV export of the scope is unaffected.
func (q *RecordQueue) Consume(scope string, records []models.FlatRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := q.Push(records); err != nil {
		q.logger.WithError(err).WithField("scope", scope).Warn("Dropping batch")
		return err
	}
	return nil
}

// Subscribe adds a handler function that will be called for each batch
func (q *RecordQueue) Subscribe(handler func([]models.FlatRecord) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *RecordQueue) Start() {
	go q.process()
}

// process handles the queue processing loop
func (q *RecordQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *RecordQueue) processBatch(batch []models.FlatRecord) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added
func (q *RecordQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue
func (q *RecordQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *RecordQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
