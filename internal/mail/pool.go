package mail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("mail queue is full")
	ErrQueueClosed = errors.New("mail queue is closed")
)

// Dispatcher queues a message for delivery and returns without waiting for it
type Dispatcher interface {
	Dispatch(ctx context.Context, m *Message) error
	Close() error
}

// Pool is an in-process dispatcher. A fixed number of workers drain a
// bounded queue, messages still queued on Close are delivered before it
// returns.
type Pool struct {
	sender  Sender
	jobs    chan *Message
	workers int
	timeout time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	pending atomic.Int32
}

func NewPool(sender Sender, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if queueSize <= 0 {
		queueSize = 64
	}

	zap.L().Debug("Initializing mail queue", zap.Int("workers", workers), zap.Int("queue_size", queueSize))

	return &Pool{
		sender:  sender,
		jobs:    make(chan *Message, queueSize),
		workers: workers,
		timeout: 30 * time.Second,
	}
}

func (p *Pool) StartWorkerPool() {
	for range p.workers {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for m := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.sender.Send(ctx, m)
		cancel()

		p.pending.Add(-1)

		if err != nil {
			zap.L().Error("Failed to deliver mail", zap.String("to", m.To), zap.Error(err))
			continue
		}

		zap.L().Debug("Mail delivered", zap.String("to", m.To))
	}
}

func (p *Pool) Dispatch(ctx context.Context, m *Message) error {
	if m == nil || m.To == "" {
		return ErrNoRecipient
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrQueueClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.pending.Add(1)

	select {
	case p.jobs <- m:
		return nil
	default:
		p.pending.Add(-1)
		return ErrQueueFull
	}
}

// Pending returns how many messages are queued or being sent
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
