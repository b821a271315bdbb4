// Package worker provides an asynchronous worker pool for persisting
// finalized turn messages and publishing turn events.
//
// The pool decouples persistence from the turn streaming hot path so the
// client sees the last render operation as soon as the agent run ends.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/eventstream"
	"github.com/frostpeakco/floe/pkg/thread"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Message is persisted to the thread store.
	Message *thread.Message

	// Event, when set, is published after the message is stored.
	Event *eventstream.TurnFinalizedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Store is the message cache backend.
	Store thread.Store

	// Publisher is the optional turn event publisher. If nil, events
	// are dropped.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes persistence jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("message_id", job.Message.ID),
			zap.Int64("thread_id", job.Message.ThreadID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("message_id", job.Message.ID),
			zap.Int64("thread_id", job.Message.ThreadID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("persistence worker stopped", zap.Uint("worker_id", id))
}

// processJob stores the message and publishes the turn event, if any.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if job.Message == nil {
		p.logger.Error("job without message dropped")
		return
	}

	inserted, err := p.config.Store.Put(ctx, job.Message)
	if err != nil {
		p.logger.Error("async message storage failed",
			zap.String("message_id", job.Message.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("message stored",
		zap.String("message_id", job.Message.ID),
		zap.Int64("thread_id", job.Message.ThreadID),
		zap.Bool("is_new", inserted),
	)

	if p.config.Publisher == nil || job.Event == nil {
		return
	}

	if err := p.config.Publisher.PublishTurn(ctx, job.Event); err != nil {
		p.logger.Warn("failed to publish turn event",
			zap.String("event_id", job.Event.EventID),
			zap.Error(err),
		)
	}
}
