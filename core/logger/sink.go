package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// sink serialises log lines onto a background goroutine that fans them out
// to every output. Lines are never dropped: a full queue blocks the caller.
type sink struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	close   sync.Once

	mu   sync.Mutex
	outs []*bufio.Writer
	err  error
}

const sinkQueue = 256

func newSink(outputs []io.Writer, bufSize int) *sink {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	s := &sink{
		lines:   make(chan []byte, sinkQueue),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
	}
	for _, o := range outputs {
		if o != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(o, bufSize))
		}
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.stopped)
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.flush()
				return
			}
			s.fail(s.emit(line))
		case ack := <-s.flushes:
			ack <- s.flush()
		}
	}
}

// Write queues a copy of p.
func (s *sink) Write(p []byte) error {
	if err := s.failed(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	s.lines <- append([]byte(nil), p...)
	return nil
}

// Flush blocks until everything queued so far reached the outputs.
func (s *sink) Flush() error {
	if err := s.failed(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	s.flushes <- ack
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (s *sink) Close() error {
	s.close.Do(func() { close(s.lines) })
	<-s.stopped
	return s.failed()
}

func (s *sink) emit(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.outs {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *sink) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, w := range s.outs {
		errs = append(errs, w.Flush())
	}
	return errors.Join(errs...)
}

func (s *sink) failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sink) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
