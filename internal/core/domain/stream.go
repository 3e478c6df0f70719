package domain

import "sync"

// TokenStream carries generated token pieces from the producer to a single
// consumer over a bounded channel. A full or cancelled consumer signals
// "stop accepting"; the producer stops forwarding but still drains the
// underlying generation so shared engine state stays consistent.
//
// A stream is finite and not restartable: it terminates on the model stop
// token, a generation error, or consumer cancellation.
type TokenStream struct {
	ch   chan string
	done chan struct{}

	cancelOnce sync.Once
	closeOnce  sync.Once

	mu  sync.Mutex
	err error
}

// NewTokenStream creates a stream with the given channel buffer.
func NewTokenStream(buffer int) *TokenStream {
	if buffer < 1 {
		buffer = 1
	}
	return &TokenStream{
		ch:   make(chan string, buffer),
		done: make(chan struct{}),
	}
}

// Tokens returns the consumer channel. It is closed when the stream ends.
func (s *TokenStream) Tokens() <-chan string {
	return s.ch
}

// Cancel signals the producer to stop forwarding tokens. Safe to call
// multiple times and concurrently with consumption.
func (s *TokenStream) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.done)
	})
}

// Cancelled reports whether the consumer cancelled the stream.
func (s *TokenStream) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Emit offers a token piece to the consumer without blocking.
// It returns false when the stream is cancelled or the buffer is full;
// a false return means the piece was not forwarded.
func (s *TokenStream) Emit(piece string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- piece:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Close ends the stream, recording an optional terminal error.
// Safe to call multiple times; only the first error is kept.
func (s *TokenStream) Close(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// Err returns the terminal error, if any. Only meaningful once the
// Tokens channel has been closed.
func (s *TokenStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
