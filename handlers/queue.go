package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// InboundQueue decouples asynchronous message arrival from the decode loop.
// The transport read loop pushes raw messages; a short-period ticker drains
// them through a single consumer. The draining guard makes a tick that
// arrives while a pass is still running a no-op, so at most one decode pass
// runs at a time and the decoder's partial buffer is never touched from two
// passes concurrently.
type InboundQueue struct {
	mu      sync.Mutex
	pending [][]byte

	draining atomic.Bool
	process  func([]byte)
	interval time.Duration
	logger   *zap.Logger
}

func NewInboundQueue(interval time.Duration, process func([]byte), logger *zap.Logger) *InboundQueue {
	return &InboundQueue{
		process:  process,
		interval: interval,
		logger:   logger,
	}
}

// Push appends one message. Ownership transfers to the queue.
func (q *InboundQueue) Push(msg []byte) {
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
}

// Run drains the queue on a fixed cadence until the context is cancelled.
func (q *InboundQueue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("Inbound queue drain loop stopped")
			return
		case <-ticker.C:
			q.Drain()
		}
	}
}

// Drain processes queued messages to empty, in arrival order. Returns false
// without doing anything when another pass is already in progress.
func (q *InboundQueue) Drain() bool {
	if !q.draining.CompareAndSwap(false, true) {
		return false
	}
	defer q.draining.Store(false)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return true
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.process(msg)
	}
}

// Clear discards everything still queued.
func (q *InboundQueue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

// Len reports the number of queued messages.
func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
