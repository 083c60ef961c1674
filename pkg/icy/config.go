package icy

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultErrorInterval    = 600 * time.Second
	defaultEmptyInterval    = 300 * time.Second
	defaultMetadataInterval = 5 * time.Second
)

// Config is the full configuration snapshot held by a Radio. Values are
// passed through as given; nonsensical values are the caller's problem.
type Config struct {
	// URL of the stream or of a .pls/.m3u playlist resolving to one
	URL string `yaml:"url,omitempty"`

	// Keep the connection open after metadata arrives instead of
	// reconnecting on a timer
	KeepListen bool `yaml:"keep-listen,omitempty"`

	// Arrange the next connection attempt after a stream or empty outcome
	AutoUpdate bool `yaml:"auto-update,omitempty"`

	// Delay before retrying after a transport error
	ErrorInterval time.Duration `yaml:"error-interval,omitempty"`

	// Delay before retrying after a response without an icy-metaint header
	EmptyInterval time.Duration `yaml:"empty-interval,omitempty"`

	// Delay before the next attempt once metadata has been received
	MetadataInterval time.Duration `yaml:"metadata-interval,omitempty"`
}

// DefaultConfig returns the built-in defaults that the first SetConfig
// merges over.
func DefaultConfig() Config {
	return Config{
		AutoUpdate:       true,
		ErrorInterval:    defaultErrorInterval,
		EmptyInterval:    defaultEmptyInterval,
		MetadataInterval: defaultMetadataInterval,
	}
}

// Option mutates a configuration snapshot. Options passed to New or
// SetConfig override the corresponding field, later options winning;
// fields with no option keep their prior value.
type Option func(*Radio, *Config)

// WithURL replaces the stream URL.
func WithURL(url string) Option {
	return func(_ *Radio, c *Config) { c.URL = url }
}

// WithKeepListen controls whether an established stream is kept open
// indefinitely instead of being torn down after each metadata frame.
func WithKeepListen(keep bool) Option {
	return func(_ *Radio, c *Config) { c.KeepListen = keep }
}

// WithAutoUpdate controls timer-driven reconnection after stream and
// empty outcomes.
func WithAutoUpdate(auto bool) Option {
	return func(_ *Radio, c *Config) { c.AutoUpdate = auto }
}

// WithErrorInterval sets the delay before retrying a failed connection.
func WithErrorInterval(d time.Duration) Option {
	return func(_ *Radio, c *Config) { c.ErrorInterval = d }
}

// WithEmptyInterval sets the delay before retrying a metadata-less stream.
func WithEmptyInterval(d time.Duration) Option {
	return func(_ *Radio, c *Config) { c.EmptyInterval = d }
}

// WithMetadataInterval sets the delay before reconnecting after metadata
// has been received.
func WithMetadataInterval(d time.Duration) Option {
	return func(_ *Radio, c *Config) { c.MetadataInterval = d }
}

// WithLogger sets the logger used by the Radio.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Radio, _ *Config) { r.logger = logger }
}

// WithHTTPClient replaces the HTTP client. The caller is responsible for
// routing connections through a status line rewriter if the replacement
// must talk to ICY servers; NewTransport builds a suitable transport.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Radio, _ *Config) { r.client = client }
}

// WithStreamCallback registers the stream subscriber at construction
// time, before the first attempt can fire.
func WithStreamCallback(fn StreamCallbackFunc) Option {
	return func(r *Radio, _ *Config) { r.onStream = fn }
}

// WithMetadataCallback registers the metadata subscriber at construction
// time.
func WithMetadataCallback(fn MetadataCallbackFunc) Option {
	return func(r *Radio, _ *Config) { r.onMetadata = fn }
}

// WithEmptyCallback registers the empty-stream subscriber at construction
// time.
func WithEmptyCallback(fn func()) Option {
	return func(r *Radio, _ *Config) { r.onEmpty = fn }
}

// WithErrorCallback registers the transport-error subscriber at
// construction time.
func WithErrorCallback(fn ErrorCallbackFunc) Option {
	return func(r *Radio, _ *Config) { r.onError = fn }
}

// SetConfig shallow-merges the given options over the current snapshot.
// Radio state already derived from the old snapshot (an open stream, a
// pending attempt) is not rewound; new values apply from the next
// outcome onwards.
func (r *Radio) SetConfig(opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.cfg
	for _, opt := range opts {
		opt(r, &cfg)
	}
	r.cfg = cfg
}

// GetConfig returns the current configuration snapshot.
func (r *Radio) GetConfig() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// ConfigValue looks up a single configuration value by its key name:
// url, keepListen, autoUpdate, errorInterval, emptyInterval or
// metadataInterval. The second return is false for unknown keys.
func (r *Radio) ConfigValue(key string) (any, bool) {
	cfg := r.GetConfig()
	switch key {
	case "url":
		return cfg.URL, true
	case "keepListen":
		return cfg.KeepListen, true
	case "autoUpdate":
		return cfg.AutoUpdate, true
	case "errorInterval":
		return cfg.ErrorInterval, true
	case "emptyInterval":
		return cfg.EmptyInterval, true
	case "metadataInterval":
		return cfg.MetadataInterval, true
	}
	return nil, false
}
