package app

import (
	"context"
	"sync"
)

// Preview holds the most recent rendered frame as JPEG and lets readers
// wait for the next one.
type Preview struct {
	mu     sync.Mutex
	frame  []byte
	seq    uint64
	notify chan struct{}
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{notify: make(chan struct{})}
}

// Publish replaces the current frame and wakes all waiters.
func (p *Preview) Publish(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame = jpeg
	p.seq++
	close(p.notify)
	p.notify = make(chan struct{})
}

// Latest returns the current frame and its sequence number. The sequence
// is 0 before anything was published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, p.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			frame, seq := p.frame, p.seq
			p.mu.Unlock()
			return frame, seq, nil
		}
		ch := p.notify
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, after, ctx.Err()
		}
	}
}
