package session

import (
	"context"
	"time"

	"github.com/m3rciful/sprintbot/core/telegram/state"
)

// Store owns every chat's State and serializes turns per chat id.
type Store struct {
	inner *state.Store[int64, State]
}

// NewStore builds an empty session store.
func NewStore(opts ...state.Option[int64, State]) *Store {
	return &Store{inner: state.NewStore(New, opts...)}
}

// Turn runs fn with exclusive access to the chat's state, creating it lazily.
func (s *Store) Turn(chatID int64, fn func(*State) error) error {
	return s.inner.Do(chatID, fn)
}

// Len returns the number of tracked chats.
func (s *Store) Len() int {
	return s.inner.Len()
}

// Run evicts sessions idle longer than ttl until ctx is done.
func (s *Store) Run(ctx context.Context, sweepEvery, ttl time.Duration) {
	s.inner.RunSweeper(ctx, sweepEvery, ttl)
}

// Evict drops sessions idle longer than ttl.
func (s *Store) Evict(ttl time.Duration) int {
	return s.inner.Evict(ttl)
}
