package icy

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchStatusLine(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  string
	}{
		{
			name:  "icy status line",
			chunk: "ICY 200 OK\r\n",
			want:  "HTTP/1.0 200 OK\r\n",
		},
		{
			name:  "lowercase token",
			chunk: "icy 200 OK\r\n",
			want:  "HTTP/1.0 200 OK\r\n",
		},
		{
			name:  "mixed case token",
			chunk: "iCy 404 Not Found\r\n",
			want:  "HTTP/1.0 404 Not Found\r\n",
		},
		{
			name:  "conformant response untouched",
			chunk: "HTTP/1.1 200 OK\r\n",
			want:  "HTTP/1.1 200 OK\r\n",
		},
		{
			name:  "arbitrary bytes untouched",
			chunk: "\xff\xfb\x90audio",
			want:  "\xff\xfb\x90audio",
		},
		{
			name:  "chunk shorter than token",
			chunk: "IC",
			want:  "IC",
		},
		{
			name:  "bare token",
			chunk: "ICY",
			want:  "HTTP/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PatchStatusLine([]byte(tt.chunk))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestPatchStatusLineLength(t *testing.T) {
	chunk := []byte("ICY 200 OK\r\nicy-metaint:16000\r\n\r\n")
	out := PatchStatusLine(chunk)

	assert.Len(t, out, len(chunk)-3+8)
	assert.Equal(t, []byte("HTTP/1.0"), out[:8])
	assert.Equal(t, chunk[3:], out[8:])
}

// scriptedConn serves a fixed sequence of read chunks, preserving the
// chunk boundaries the transport would deliver.
type scriptedConn struct {
	net.Conn
	chunks [][]byte
	closed bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *scriptedConn) Close() error {
	c.closed = true
	return nil
}

func TestStatusLineConnRewritesFirstChunkOnly(t *testing.T) {
	conn := &statusLineConn{Conn: &scriptedConn{
		chunks: [][]byte{
			[]byte("ICY 200 OK\r\n"),
			[]byte("ICY 200 OK\r\n"), // would be rewritten if the adapter misbehaved
		},
	}}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 200 OK\r\n", string(buf[:n]))

	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ICY 200 OK\r\n", string(buf[:n]))
}

func TestStatusLineConnPassthroughFirstChunk(t *testing.T) {
	conn := &statusLineConn{Conn: &scriptedConn{
		chunks: [][]byte{[]byte("HTTP/1.1 200 OK\r\n")},
	}}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", string(buf[:n]))
}

func TestStatusLineConnSmallReadBuffer(t *testing.T) {
	// The rewrite grows the first chunk by 5 bytes; a small destination
	// buffer forces the overflow through the pending path.
	conn := &statusLineConn{Conn: &scriptedConn{
		chunks: [][]byte{[]byte("ICY 200 OK\r\n")},
	}}

	var got []byte
	buf := make([]byte, 4)
	for {
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, "HTTP/1.0 200 OK\r\n", string(got))
}
