package monitor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"
	"time"

	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{}, discardLogger())
	require.Error(t, err)

	m, err := New(Config{URL: "http://example.test/stream"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, defaultWriteBufferSize, m.cfg.WriteBufferSize)
}

func TestOutcomeCounters(t *testing.T) {
	m, err := New(Config{URL: "http://example.test/stream"}, discardLogger())
	require.NoError(t, err)

	emptyBefore := testutil.ToFloat64(outcomesTotal.WithLabelValues("empty"))
	errorBefore := testutil.ToFloat64(outcomesTotal.WithLabelValues("error"))
	metaBefore := testutil.ToFloat64(metadataUpdatesTotal)

	m.handleEmpty()
	m.handleError(fmt.Errorf("connection refused"))
	m.handleMetadata(map[string]string{"StreamTitle": "Song"})

	assert.Equal(t, emptyBefore+1, testutil.ToFloat64(outcomesTotal.WithLabelValues("empty")))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(outcomesTotal.WithLabelValues("error")))
	assert.Equal(t, metaBefore+1, testutil.ToFloat64(metadataUpdatesTotal))
}

// icyWire interleaves one metadata frame into the audio stream.
func icyWire(metaint int, audio []byte, frame string) []byte {
	padded := []byte(frame)
	for len(padded)%16 != 0 {
		padded = append(padded, 0)
	}

	var buf bytes.Buffer
	buf.Write(audio[:metaint])
	buf.WriteByte(byte(len(padded) / 16))
	buf.Write(padded)
	buf.Write(audio[metaint:])
	return buf.Bytes()
}

func TestMonitorRecordsStream(t *testing.T) {
	audio := mp3ish(nil, bytes.Repeat([]byte{0x42}, 62))
	wire := icyWire(32, audio, "StreamTitle='Song - Artist';")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", "32")
		w.Header().Set("icy-name", "Test FM")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write(wire)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	dir := t.TempDir()
	metaBefore := testutil.ToFloat64(metadataUpdatesTotal)

	m, err := New(Config{
		URL:              ts.URL,
		MetadataInterval: time.Hour,
		RecordDir:        dir,
		WriteBufferSize:  16,
	}, discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, services.StartAndAwaitRunning(ctx, m))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metadataUpdatesTotal) > metaBefore
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, services.StopAndAwaitTerminated(ctx, m))

	// keepListen defaults to false: teardown after the metadata frame means
	// only the audio ahead of the frame is captured
	got, err := os.ReadFile(path.Join(dir, "Test FM", "Song - Artist.mp3"))
	require.NoError(t, err)
	assert.Equal(t, audio[:32], got)
}
