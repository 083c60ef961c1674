package icy

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// userAgent is sent on every stream request. Some directories refuse
// unknown agents; a bare Mozilla token is universally accepted.
const userAgent = "Mozilla"

// State is the controller's position in the connection cycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateEmptyHandled
	StateErrorHandled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateEmptyHandled:
		return "empty"
	case StateErrorHandled:
		return "error"
	default:
		return "unknown"
	}
}

// Station describes the stream as reported by the server's icy-* headers.
type Station struct {
	Name        string
	Genre       string
	Description string
	URL         string
	Bitrate     int
}

func stationFromHeaders(h http.Header) Station {
	bitrate, _ := strconv.Atoi(h.Get("icy-br"))
	return Station{
		Name:        h.Get("icy-name"),
		Genre:       h.Get("icy-genre"),
		Description: h.Get("icy-description"),
		URL:         h.Get("icy-url"),
		Bitrate:     bitrate,
	}
}

// ScheduledTask is a pending connection attempt. The controller never
// cancels one on its own; Cancel exists for callers that manage the
// cycle externally.
type ScheduledTask struct {
	timer *time.Timer
	delay time.Duration
}

// Delay returns the delay the task was armed with.
func (t *ScheduledTask) Delay() time.Duration {
	return t.delay
}

// Cancel stops the task, reporting whether it was still pending.
func (t *ScheduledTask) Cancel() bool {
	return t.timer.Stop()
}

// StreamCallbackFunc receives the demuxer of an established stream; its
// Read side is the caller's audio channel.
type StreamCallbackFunc func(d *Demuxer)

// ErrorCallbackFunc receives transport failures.
type ErrorCallbackFunc func(err error)

// Radio cycles through connection attempts against a single stream URL,
// classifying each attempt as errored, empty or streaming and arming the
// matching retry interval. It never gives up on its own: only
// AutoUpdate/KeepListen gates or Stop end the cycle.
type Radio struct {
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	cfg     Config
	state   State
	station Station
	demuxer *Demuxer
	task    *ScheduledTask
	stopped bool

	onStream   StreamCallbackFunc
	onMetadata MetadataCallbackFunc
	onEmpty    func()
	onError    ErrorCallbackFunc
}

// New creates a Radio for the given stream URL, applies the options over
// the built-in defaults and queues the first connection attempt
// immediately.
func New(url string, opts ...Option) *Radio {
	r := &Radio{
		client: &http.Client{Transport: NewTransport()},
		logger: slog.Default(),
		cfg:    DefaultConfig(),
		state:  StateIdle,
	}
	r.cfg.URL = url
	for _, opt := range opts {
		opt(r, &r.cfg)
	}
	r.QueueRequest(0)
	return r
}

// OnStream registers the callback invoked when a metadata-capable stream
// is established.
func (r *Radio) OnStream(fn StreamCallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStream = fn
}

// OnMetadata registers the callback invoked for each decoded metadata
// frame.
func (r *Radio) OnMetadata(fn MetadataCallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMetadata = fn
}

// OnEmpty registers the callback invoked when a response carries no
// icy-metaint header.
func (r *Radio) OnEmpty(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEmpty = fn
}

// OnError registers the callback invoked on transport failures.
func (r *Radio) OnError(fn ErrorCallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// State returns the controller's current state.
func (r *Radio) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Station returns the icy-* header description of the last established
// stream.
func (r *Radio) Station() Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.station
}

// QueueRequest arms a one-shot timer that starts the next connection
// attempt after the given delay. A zero delay fires immediately. The
// returned task is the pending attempt; cancelling it is the caller's
// extension point, the Radio itself never does.
func (r *Radio) QueueRequest(delay time.Duration) *ScheduledTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queueLocked(delay)
}

func (r *Radio) queueLocked(delay time.Duration) *ScheduledTask {
	if r.stopped {
		return nil
	}
	task := &ScheduledTask{delay: delay}
	task.timer = time.AfterFunc(delay, r.attempt)
	r.task = task
	return task
}

// PendingTask returns the most recently queued attempt, or nil if none
// has been queued yet.
func (r *Radio) PendingTask() *ScheduledTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task
}

// Stop cancels any pending attempt and tears down the active stream.
// The default cycle never calls it.
func (r *Radio) Stop() {
	r.mu.Lock()
	r.stopped = true
	task := r.task
	d := r.demuxer
	r.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	if d != nil {
		_ = d.Close()
	}
}

// attempt runs one Requesting -> outcome -> Idle pass of the cycle.
func (r *Radio) attempt() {
	cfg := r.GetConfig()
	r.setState(StateRequesting)
	r.logger.Debug("connecting", "url", cfg.URL)

	resp, err := r.open(cfg.URL)
	if err != nil {
		r.handleError(cfg, err)
		return
	}

	interval, err := strconv.Atoi(resp.Header.Get("icy-metaint"))
	if err != nil || interval <= 0 {
		r.handleEmpty(cfg, resp)
		return
	}

	r.handleStream(cfg, resp, interval)
}

// open resolves playlists and issues the stream request with the ICY
// metadata extension enabled.
func (r *Radio) open(rawURL string) (*http.Response, error) {
	streamURL, err := resolveStreamURL(r.client, rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Icy-MetaData", "1")
	req.Header.Set("User-Agent", userAgent)

	// Outcome classification keys on the icy-metaint header alone, not on
	// the status code: any parseable response without the header is an
	// empty stream, not an error.
	return r.client.Do(req)
}

// handleError reports a transport failure and re-arms unconditionally.
// Unlike the success paths this does not consult KeepListen; a failed
// attempt leaves nothing open to listen to.
func (r *Radio) handleError(cfg Config, err error) {
	r.setState(StateErrorHandled)
	r.logger.Debug("connection attempt failed", "url", cfg.URL, "err", err)
	r.emitError(err)
	r.QueueRequest(cfg.ErrorInterval)
	r.setState(StateIdle)
}

// handleEmpty deals with a well-formed response that carries no
// icy-metaint header: there is no metadata to wait for on this
// connection.
func (r *Radio) handleEmpty(cfg Config, resp *http.Response) {
	if !cfg.KeepListen {
		resp.Body.Close()
	}
	r.setState(StateEmptyHandled)
	r.logger.Debug("stream has no metadata interval", "url", cfg.URL)
	r.emitEmpty()
	if cfg.AutoUpdate && !cfg.KeepListen {
		r.QueueRequest(cfg.EmptyInterval)
	}
	r.setState(StateIdle)
}

// handleStream wires a demuxer over the response body and hands it to the
// subscriber. Each decoded frame applies the teardown policy, surfaces
// the metadata and, when the gates allow, arms the next attempt.
func (r *Radio) handleStream(cfg Config, resp *http.Response, interval int) {
	d, err := NewDemuxer(resp.Body, interval, nil)
	if err != nil {
		resp.Body.Close()
		r.handleError(cfg, err)
		return
	}
	d.callback = func(m Metadata) {
		c := r.GetConfig()
		if !c.KeepListen {
			_ = d.Close()
		}
		r.emitMetadata(m)
		if c.AutoUpdate && !c.KeepListen {
			r.QueueRequest(c.MetadataInterval)
		}
	}

	r.mu.Lock()
	r.state = StateStreaming
	r.station = stationFromHeaders(resp.Header)
	r.demuxer = d
	r.mu.Unlock()

	r.logger.Debug("stream established", "url", cfg.URL, "metaint", interval)
	r.emitStream(d)

	go func() {
		d.Run()
		if err := d.Err(); err != nil && !isClosedErr(err) {
			r.logger.Debug("stream ended", "url", cfg.URL, "err", err)
		}
		r.setState(StateIdle)
	}()
}

// isClosedErr matches the errors produced by reading a body the teardown
// policy already closed.
func isClosedErr(err error) bool {
	return errors.Is(err, http.ErrBodyReadAfterClose) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}

func (r *Radio) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Radio) emitStream(d *Demuxer) {
	r.mu.Lock()
	fn := r.onStream
	r.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

func (r *Radio) emitMetadata(m Metadata) {
	r.mu.Lock()
	fn := r.onMetadata
	r.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

func (r *Radio) emitEmpty() {
	r.mu.Lock()
	fn := r.onEmpty
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *Radio) emitError(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
