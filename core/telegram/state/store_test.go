package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type counter struct {
	key int64
	n   int
}

func newCounterStore(opts ...Option[int64, counter]) *Store[int64, counter] {
	return NewStore(func(k int64) *counter { return &counter{key: k} }, opts...)
}

func peek(s *Store[int64, counter], key int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func TestDoCreatesLazily(t *testing.T) {
	s := newCounterStore()
	if peek(s, 7) {
		t.Fatal("unexpected entry before first use")
	}
	err := s.Do(7, func(c *counter) error {
		if c.key != 7 {
			t.Fatalf("key = %d", c.key)
		}
		c.n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !peek(s, 7) || s.Len() != 1 {
		t.Fatal("entry not stored")
	}
}

func TestDoPropagatesError(t *testing.T) {
	s := newCounterStore()
	boom := errors.New("boom")
	if err := s.Do(1, func(*counter) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestDoSerializesSameKey(t *testing.T) {
	s := newCounterStore()
	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = s.Do(42, func(c *counter) error {
				// read-modify-write split across a yield to expose lost updates
				n := c.n
				time.Sleep(time.Microsecond)
				c.n = n + 1
				return nil
			})
		}()
	}
	wg.Wait()
	_ = s.Do(42, func(c *counter) error {
		if c.n != workers {
			t.Fatalf("n = %d, want %d", c.n, workers)
		}
		return nil
	})
}

func TestDoDoesNotBlockOtherKeys(t *testing.T) {
	s := newCounterStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Do(1, func(*counter) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = s.Do(2, func(*counter) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key 2 blocked by key 1")
	}
	close(release)
}

func TestEvictSkipsBusyAndFresh(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newCounterStore(WithClock[int64, counter](clock))

	_ = s.Do(1, func(*counter) error { return nil })
	now = now.Add(2 * time.Hour)
	_ = s.Do(2, func(*counter) error { return nil })

	busy := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Do(3, func(*counter) error {
			close(busy)
			<-release
			return nil
		})
	}()
	<-busy

	now = now.Add(30 * time.Minute)
	if n := s.Evict(time.Hour); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if peek(s, 1) {
		t.Fatal("idle key 1 should be evicted")
	}
	if !peek(s, 2) || !peek(s, 3) {
		t.Fatal("fresh and busy keys must survive")
	}
	close(release)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	s := newCounterStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
