package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/saftigesloch/icecast-parser/pkg/icy"
)

var module = "monitor"

var (
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icecastparser",
		Name:      "connection_outcomes_total",
		Help:      "Connection attempt outcomes by classification.",
	}, []string{"outcome"})

	metadataUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "icecastparser",
		Name:      "metadata_updates_total",
		Help:      "Decoded metadata frames received.",
	})
)

// Monitor runs a Radio against a configured stream, logs now-playing
// titles, counts outcomes and optionally records the audio channel to
// per-track files.
type Monitor struct {
	services.Service
	cfg    *Config
	logger *slog.Logger
	radio  *icy.Radio
	rec    *recorder

	lastTitle string
}

// New creates and returns a new Monitor service.
func New(cfg Config, logger *slog.Logger) (*Monitor, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("monitor requires a stream url")
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaultWriteBufferSize
	}

	m := &Monitor{
		cfg:    &cfg,
		logger: logger.With("module", module),
	}

	m.Service = services.NewBasicService(m.starting, m.running, m.stopping)

	return m, nil
}

func (m *Monitor) starting(ctx context.Context) error {
	if m.cfg.RecordDir != "" {
		m.rec = newRecorder(m.cfg.RecordDir, m.cfg.WriteBufferSize, m.logger)
	}

	// The first attempt fires as soon as construction finishes, so the
	// radio handle must be in place before New returns.
	opts := []icy.Option{
		func(r *icy.Radio, _ *icy.Config) { m.radio = r },
		icy.WithLogger(m.logger),
		icy.WithKeepListen(m.cfg.KeepListen),
		icy.WithAutoUpdate(m.cfg.AutoUpdate),
		icy.WithStreamCallback(m.handleStream),
		icy.WithMetadataCallback(m.handleMetadata),
		icy.WithEmptyCallback(m.handleEmpty),
		icy.WithErrorCallback(m.handleError),
	}
	if m.cfg.ErrorInterval > 0 {
		opts = append(opts, icy.WithErrorInterval(m.cfg.ErrorInterval))
	}
	if m.cfg.EmptyInterval > 0 {
		opts = append(opts, icy.WithEmptyInterval(m.cfg.EmptyInterval))
	}
	if m.cfg.MetadataInterval > 0 {
		opts = append(opts, icy.WithMetadataInterval(m.cfg.MetadataInterval))
	}

	icy.New(m.cfg.URL, opts...)

	return nil
}

func (m *Monitor) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *Monitor) stopping(_ error) error {
	m.logger.Info("stopping")

	if m.radio != nil {
		m.radio.Stop()
	}
	if m.rec != nil {
		return m.rec.close()
	}
	return nil
}

func (m *Monitor) handleStream(d *icy.Demuxer) {
	outcomesTotal.WithLabelValues("stream").Inc()

	station := m.radio.Station()
	m.logger.Info("stream established",
		"station", station.Name,
		"genre", station.Genre,
		"bitrate", station.Bitrate,
		"metaint", d.Interval(),
	)

	if m.rec != nil {
		m.rec.capture(d)
	}
}

func (m *Monitor) handleMetadata(meta icy.Metadata) {
	metadataUpdatesTotal.Inc()

	title := meta.StreamTitle()
	if title == m.lastTitle {
		return
	}
	m.lastTitle = title
	m.logger.Info("now playing", "title", title)

	if m.rec != nil && title != "" {
		m.rec.newTrack(m.radio.Station().Name, title)
	}
}

func (m *Monitor) handleEmpty() {
	outcomesTotal.WithLabelValues("empty").Inc()
	m.logger.Warn("stream carries no metadata interval", "url", m.cfg.URL)
}

func (m *Monitor) handleError(err error) {
	outcomesTotal.WithLabelValues("error").Inc()
	m.logger.Error("connection attempt failed", "url", m.cfg.URL, "err", err)
}
