package datasource

import (
	"context"
	"log/slog"
	"sync"
)

// FetchFunc performs one request and returns its decoded payload.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Subscription owns the FetchResult of a single query. Each Refetch starts a
// new generation; only the latest generation may resolve the result, and
// nothing resolves it after Close.
type Subscription[T any] struct {
	name   string
	fetch  FetchFunc[T]
	notify func()
	logger *slog.Logger

	mu     sync.Mutex
	result FetchResult[T]
	gen    uint64
	closed bool
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewSubscription creates a pending subscription. notify is called after
// every applied transition and may be nil.
func NewSubscription[T any](name string, fetch FetchFunc[T], notify func(), logger *slog.Logger) *Subscription[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscription[T]{
		name:   name,
		fetch:  fetch,
		notify: notify,
		logger: logger,
		result: Pending[T](),
	}
}

// Name returns the query name used in logs.
func (s *Subscription[T]) Name() string {
	return s.name
}

// Result returns the current result.
func (s *Subscription[T]) Result() FetchResult[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Refetch issues a new request without blocking. The previous result stays
// visible until the new one resolves; an in-flight request of an older
// generation is cancelled and its outcome discarded.
func (s *Subscription[T]) Refetch(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("Query issued", "query", s.name, "generation", gen)

	go func() {
		defer s.wg.Done()
		defer cancel()

		value, err := s.fetch(fetchCtx)
		s.resolve(gen, value, err)
	}()
}

func (s *Subscription[T]) resolve(gen uint64, value T, err error) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale query result", "query", s.name, "generation", gen)
		return
	}
	if err != nil {
		s.result = Failed[T](err.Error())
	} else {
		s.result = Succeeded(value)
	}
	s.cancel = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("Query failed", "query", s.name, "generation", gen, "error", err)
	} else {
		s.logger.Debug("Query resolved", "query", s.name, "generation", gen)
	}

	if s.notify != nil {
		s.notify()
	}
}

// Close tears the subscription down and cancels any in-flight request.
// Results arriving afterwards are dropped.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Wait blocks until every issued request has returned.
func (s *Subscription[T]) Wait() {
	s.wg.Wait()
}
