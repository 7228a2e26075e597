// Package input delivers the confirm-button press to the game loop.
package input

import "context"

// Signal is a single-slot press latch. Any number of Notify calls between
// two Take calls collapse into one press.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify records a press without blocking.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Take consumes a pending press.
func (s *Signal) Take() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// C exposes the latch for select loops.
func (s *Signal) C() <-chan struct{} { return s.ch }

// Source feeds presses into a signal until ctx ends.
type Source interface {
	Run(ctx context.Context, sig *Signal) error
}

// None never presses.
type None struct{}

func (None) Run(ctx context.Context, _ *Signal) error {
	<-ctx.Done()
	return nil
}
