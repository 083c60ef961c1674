package monitor

import (
	"io"
	"sync"
)

// chanWriter bridges io.Copy onto a channel so one goroutine can pump the
// stream while another owns the current output file.
type chanWriter struct {
	mu     sync.Mutex
	data   chan []byte
	closed bool
}

func newChanWriter() *chanWriter {
	return &chanWriter{
		data: make(chan []byte, 1024),
	}
}

func (cw *chanWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return 0, io.ErrClosedPipe
	}

	// io.Copy reuses its buffer, so the chunk must be copied before it
	// crosses the channel.
	chunk := make([]byte, len(p))
	copy(chunk, p)

	select {
	case cw.data <- chunk:
	default:
		// no writer draining the channel, drop rather than stall the
		// stream pump
	}

	return len(p), nil
}

func (cw *chanWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.closed {
		close(cw.data)
		cw.closed = true
	}

	return nil
}
