package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/sprintbot/core/logger"
)

type entry[V any] struct {
	mu       sync.Mutex
	val      *V
	lastUsed time.Time
	// refs counts turns holding or waiting for mu; guarded by Store.mu.
	refs int
}

// Store maps keys to lazily created values and serializes access per key.
type Store[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	newVal  func(K) *V
	now     func() time.Time
}

// Option customises a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithClock overrides the time source used for idle tracking.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(s *Store[K, V]) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore builds a store; newVal creates the value for an unseen key.
func NewStore[K comparable, V any](newVal func(K) *V, opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		entries: make(map[K]*entry[V]),
		newVal:  newVal,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do runs fn with exclusive access to the value for key, creating it first if
// needed. Concurrent calls for the same key run one after another; fn must not
// retain the pointer after returning.
func (s *Store[K, V]) Do(key K, fn func(*V) error) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry[V]{val: s.newVal(key)}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	defer func() {
		e.lastUsed = s.now()
		e.mu.Unlock()
		s.mu.Lock()
		e.refs--
		s.mu.Unlock()
	}()
	return fn(e.val)
}

// Len returns the number of tracked keys.
func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict removes values idle for longer than ttl and returns how many were dropped.
// Keys with a turn in flight are never evicted.
func (s *Store[K, V]) Evict(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if e.refs > 0 {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// RunSweeper evicts idle values every interval until ctx is done.
func (s *Store[K, V]) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info(ctx, logger.CompSession, "sweeper.start",
		slog.Duration("interval", interval),
		slog.Duration("ttl", ttl),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, logger.CompSession, "sweeper.stop", slog.String("cause", ctx.Err().Error()))
			return
		case <-ticker.C:
			if n := s.Evict(ttl); n > 0 {
				logger.Info(ctx, logger.CompSession, "sweeper.evict",
					slog.Int("evicted", n),
					slog.Int("sessions", s.Len()),
				)
			}
		}
	}
}
