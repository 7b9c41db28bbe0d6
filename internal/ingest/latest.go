package ingest

import (
	"context"
	"sync"
)

// frameBuffer is a single-slot buffer between frame extraction and
// publication. Put never blocks: a newer frame overwrites the one
// waiting, so a slow consumer always sees the most recent frame.
type frameBuffer struct {
	mu     sync.Mutex
	frame  []byte
	set    bool
	closed bool
	notify chan struct{}
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{notify: make(chan struct{}, 1)}
}

// Put stores a frame, replacing any frame not yet taken.
func (b *frameBuffer) Put(frame []byte) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.frame = frame
	b.set = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Close marks the end of the stream. A pending frame can still be taken.
func (b *frameBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Take blocks until a frame is available, the buffer is closed, or the
// context is done. It returns ok=false when no more frames will arrive.
func (b *frameBuffer) Take(ctx context.Context) ([]byte, bool) {
	for {
		b.mu.Lock()
		if b.set {
			frame := b.frame
			b.frame = nil
			b.set = false
			b.mu.Unlock()
			return frame, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-b.notify:
		}
	}
}
