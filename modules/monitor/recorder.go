package monitor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
)

// syncScanLimit bounds how many leading bytes are searched for a frame
// sync before giving up and writing the audio as-is.
const syncScanLimit = 8192

// recorder splits the audio channel of a stream into one file per track.
// Tracks are written to a temp file first and committed on rotation; when
// a recording for the same title already exists, the longer one wins, so
// a reconnect mid-track cannot clobber a complete take.
type recorder struct {
	dir     string
	bufSize int
	logger  *slog.Logger

	cw     *chanWriter
	copyWg sync.WaitGroup

	mu         sync.Mutex
	cancel     context.CancelFunc
	writerDone chan struct{}
	current    string
}

func newRecorder(dir string, bufSize int, logger *slog.Logger) *recorder {
	return &recorder{
		dir:     dir,
		bufSize: bufSize,
		logger:  logger,
		cw:      newChanWriter(),
	}
}

// capture pumps the audio channel into the recorder until the stream
// ends.
func (r *recorder) capture(d io.Reader) {
	r.copyWg.Add(1)
	go func() {
		defer r.copyWg.Done()
		if _, err := io.Copy(r.cw, d); err != nil && err != io.ErrClosedPipe {
			r.logger.Error("error capturing audio", "err", err)
		}
	}()
}

// newTrack rotates the output file. The previous writer is stopped and
// waited for before the next one starts, so exactly one goroutine drains
// the channel at a time.
func (r *recorder) newTrack(station, title string) {
	name := path.Join(r.dir, station, title+".mp3")

	r.mu.Lock()
	defer r.mu.Unlock()

	if name == r.current {
		return
	}
	r.current = name

	r.stopWriterLocked()

	if err := os.MkdirAll(path.Dir(name), os.ModePerm); err != nil {
		r.logger.Error("error creating record directory", "err", err)
		return
	}
	f, err := os.CreateTemp(path.Dir(name), "*.mp3.tmp")
	if err != nil {
		r.logger.Error("error creating temp file", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.writerDone = done

	go func() {
		defer close(done)
		r.writeTrack(ctx, f, name)
	}()
}

func (r *recorder) stopWriterLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.writerDone != nil {
		<-r.writerDone
		r.writerDone = nil
	}
}

// close shuts the recorder down: the capture copy must have ended (the
// radio is stopped first) before the channel closes.
func (r *recorder) close() error {
	r.copyWg.Wait()
	err := r.cw.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopWriterLocked()
	return err
}

// writeTrack drains the channel into f until cancelled, aligning the
// start of the file on an MP3 frame sync and batching disk writes.
func (r *recorder) writeTrack(ctx context.Context, f *os.File, dest string) {
	synced := false
	var head []byte
	buf := make([]byte, 0, r.bufSize)

	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		if _, err := f.Write(buf); err != nil {
			r.logger.Error("error writing recording", "err", err)
			return false
		}
		buf = buf[:0]
		return true
	}

	finish := func() {
		flush()
		if err := f.Sync(); err != nil {
			r.logger.Error("error syncing recording", "err", err)
		}
		if err := f.Close(); err != nil {
			r.logger.Error("error closing recording", "err", err)
		}
		r.commit(f.Name(), dest)
	}

	handle := func(chunk []byte) bool {
		if !synced {
			head = append(head, chunk...)
			pos := findFrameSync(head)
			if pos < 0 && len(head) < syncScanLimit {
				return true
			}
			if pos < 0 {
				r.logger.Warn("no frame sync found, recording from stream position")
				pos = 0
			}
			chunk = head[pos:]
			head = nil
			synced = true
		}

		buf = append(buf, chunk...)
		if len(buf) >= r.bufSize {
			return flush()
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			// audio already queued belongs to this track, drain it before
			// handing the channel to the next writer
			for {
				select {
				case chunk, ok := <-r.cw.data:
					if ok && handle(chunk) {
						continue
					}
				default:
				}
				finish()
				return
			}
		case chunk, ok := <-r.cw.data:
			if !ok {
				finish()
				return
			}
			if !handle(chunk) {
				finish()
				return
			}
		}
	}
}

// commit moves the finished temp file into place, keeping whichever
// recording of the track is larger.
func (r *recorder) commit(tempPath, dest string) {
	tempInfo, err := os.Stat(tempPath)
	if err != nil {
		r.logger.Error("error stating temp file", "err", err, "path", tempPath)
		return
	}

	destInfo, err := os.Stat(dest)
	if err == nil && destInfo.Size() >= tempInfo.Size() {
		_ = os.Remove(tempPath)
		r.logger.Debug("kept existing longer recording", "path", dest)
		return
	}

	if err := os.Rename(tempPath, dest); err != nil {
		r.logger.Error("error committing recording", "err", err, "path", dest)
		_ = os.Remove(tempPath)
		return
	}
	r.logger.Debug("saved recording", "path", dest)
}
