package monitor

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"
)

const defaultWriteBufferSize = 256 * 1024 // 256 KiB

type Config struct {
	URL              string        `yaml:"url,omitempty"`
	KeepListen       bool          `yaml:"keep-listen,omitempty"`
	AutoUpdate       bool          `yaml:"auto-update,omitempty"`
	ErrorInterval    time.Duration `yaml:"error-interval,omitempty"`
	EmptyInterval    time.Duration `yaml:"empty-interval,omitempty"`
	MetadataInterval time.Duration `yaml:"metadata-interval,omitempty"`

	// RecordDir enables per-track recording of the audio channel when set.
	RecordDir       string `yaml:"record-dir,omitempty"`
	WriteBufferSize int    `yaml:"write-buffer-size,omitempty"` // bytes buffered per disk write
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.URL, util.PrefixConfig(prefix, "url"), "", "The stream or playlist URL to monitor")
	f.BoolVar(&cfg.KeepListen, util.PrefixConfig(prefix, "keep-listen"), false, "Keep the stream connection open instead of reconnecting after each metadata update")
	f.BoolVar(&cfg.AutoUpdate, util.PrefixConfig(prefix, "auto-update"), true, "Reconnect on a timer after stream and empty outcomes")
	f.DurationVar(&cfg.ErrorInterval, util.PrefixConfig(prefix, "error-interval"), 0, "Delay before retrying a failed connection. Zero uses the parser default (10m).")
	f.DurationVar(&cfg.EmptyInterval, util.PrefixConfig(prefix, "empty-interval"), 0, "Delay before retrying a stream without metadata. Zero uses the parser default (5m).")
	f.DurationVar(&cfg.MetadataInterval, util.PrefixConfig(prefix, "metadata-interval"), 0, "Delay before reconnecting after metadata was received. Zero uses the parser default (5s).")
	f.StringVar(&cfg.RecordDir, util.PrefixConfig(prefix, "record-dir"), "", "Directory to record per-track audio into. Empty disables recording.")
	f.IntVar(&cfg.WriteBufferSize, util.PrefixConfig(prefix, "write-buffer-size"), defaultWriteBufferSize, "Bytes to buffer in memory before writing to disk (default 256KiB)")
}
