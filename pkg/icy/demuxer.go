package icy

import (
	"fmt"
	"io"
	"sync"
)

// MetadataCallbackFunc is called for every decoded metadata frame.
type MetadataCallbackFunc func(m Metadata)

// audioChunkSize bounds single reads from the source; audioBacklog bounds
// how many undelivered chunks the audio channel holds before chunks are
// dropped for a slow consumer.
const (
	audioChunkSize = 4096
	audioBacklog   = 128
)

// Demuxer separates an ICY byte stream into audio bytes and metadata
// frames. The stream interleaves a length byte and an optional frame
// after every interval audio bytes; the Demuxer strips those and
// re-exposes pure audio through Read.
//
// Run drives consumption of the source and must be running for either
// side to make progress. Metadata decoding never waits on the audio
// consumer: when nobody drains Read fast enough, audio chunks are
// dropped so that frame boundaries keep advancing.
type Demuxer struct {
	interval int
	src      io.ReadCloser
	callback MetadataCallbackFunc

	audio    chan []byte
	leftover []byte
	done     chan struct{}

	mu        sync.Mutex
	metadata  Metadata
	err       error
	closed    bool
	closeOnce sync.Once
}

// NewDemuxer wraps src, expecting a metadata frame after every interval
// audio bytes. interval must be positive. The callback may be nil.
func NewDemuxer(src io.ReadCloser, interval int, callback MetadataCallbackFunc) (*Demuxer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("metadata interval must be positive, got %d", interval)
	}
	return &Demuxer{
		interval: interval,
		src:      src,
		callback: callback,
		audio:    make(chan []byte, audioBacklog),
		done:     make(chan struct{}),
	}, nil
}

// Interval returns the audio byte count between metadata frames.
func (d *Demuxer) Interval() int {
	return d.interval
}

// Metadata returns the most recently decoded frame, or nil.
func (d *Demuxer) Metadata() Metadata {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metadata
}

// Err returns the error that ended Run, if any. io.EOF is reported as nil.
func (d *Demuxer) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.err == io.EOF {
		return nil
	}
	return d.err
}

// Run consumes the source until it ends or the Demuxer is closed,
// invoking the callback once per decoded metadata frame. It blocks; the
// owner runs it on its own goroutine.
func (d *Demuxer) Run() {
	defer close(d.audio)
	defer close(d.done)

	for {
		if err := d.copyAudio(d.interval); err != nil {
			d.setErr(err)
			return
		}

		var lengthByte [1]byte
		if _, err := io.ReadFull(d.src, lengthByte[:]); err != nil {
			d.setErr(err)
			return
		}

		frameLen := int(lengthByte[0]) * 16
		if frameLen == 0 {
			continue
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(d.src, frame); err != nil {
			d.setErr(err)
			return
		}

		m := ParseMetadata(frame)
		d.mu.Lock()
		d.metadata = m
		cb := d.callback
		d.mu.Unlock()
		if cb != nil {
			cb(m)
		}
	}
}

// copyAudio forwards the next n audio bytes from the source into the
// audio channel, tolerating arbitrary chunking by the transport.
func (d *Demuxer) copyAudio(n int) error {
	buf := make([]byte, audioChunkSize)
	for n > 0 {
		limit := len(buf)
		if n < limit {
			limit = n
		}
		read, err := d.src.Read(buf[:limit])
		if read > 0 {
			chunk := make([]byte, read)
			copy(chunk, buf[:read])
			select {
			case d.audio <- chunk:
			default:
				// consumer is behind, drop
			}
			n -= read
		}
		if err != nil {
			// An ICY stream ends wherever the server hangs up, mid-block
			// included, so EOF here is a normal termination.
			return err
		}
	}
	return nil
}

// Read returns audio bytes with the metadata frames stripped out. It
// blocks until audio is available and reports io.EOF once Run has
// finished and the backlog is drained.
func (d *Demuxer) Read(p []byte) (int, error) {
	for len(d.leftover) == 0 {
		chunk, ok := <-d.audio
		if !ok {
			if err := d.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		d.leftover = chunk
	}
	n := copy(p, d.leftover)
	d.leftover = d.leftover[n:]
	return n, nil
}

// Close terminates the stream by closing the underlying source. Safe to
// call more than once and concurrently with Run.
func (d *Demuxer) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		err = d.src.Close()
	})
	return err
}

// Done is closed when Run has finished.
func (d *Demuxer) Done() <-chan struct{} {
	return d.done
}

func (d *Demuxer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}
