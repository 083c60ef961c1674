package icy

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"time"
)

// icyToken is the status line prefix SHOUTcast servers answer with in
// place of an HTTP version, e.g. "ICY 200 OK". net/http refuses to parse
// such a response, so the token is rewritten on the wire before parsing.
var (
	icyToken        = []byte("ICY")
	httpReplacement = []byte("HTTP/1.0")
)

// PatchStatusLine rewrites a chunk whose first three bytes spell "ICY"
// (case-insensitively) so that it begins with "HTTP/1.0" instead, the
// remainder copied through unchanged. Any other chunk is returned as-is.
func PatchStatusLine(chunk []byte) []byte {
	if len(chunk) < len(icyToken) || !bytes.EqualFold(chunk[:len(icyToken)], icyToken) {
		return chunk
	}
	out := make([]byte, 0, len(chunk)-len(icyToken)+len(httpReplacement))
	out = append(out, httpReplacement...)
	out = append(out, chunk[len(icyToken):]...)
	return out
}

// statusLineConn applies PatchStatusLine to the first chunk read from the
// wrapped connection, then steps out of the way. The rewrite happens at
// most once per connection no matter what the later bytes look like.
type statusLineConn struct {
	net.Conn
	rewrote bool
	pending []byte
}

func (c *statusLineConn) Read(p []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	if c.rewrote {
		return c.Conn.Read(p)
	}
	c.rewrote = true

	buf := make([]byte, len(p))
	n, err := c.Conn.Read(buf)
	if n == 0 {
		return 0, err
	}

	// The rewrite grows the chunk by 5 bytes, which may not fit the
	// caller's buffer; the overflow is served by the next Read.
	out := PatchStatusLine(buf[:n])
	served := copy(p, out)
	if served < len(out) {
		c.pending = out[served:]
	}
	return served, err
}

// NewTransport returns an http.Transport whose connections repair ICY
// status lines. Timeouts apply to dialing and response headers only; an
// established stream is read indefinitely.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &statusLineConn{Conn: conn}, nil
		},
		ResponseHeaderTimeout: 10 * time.Second,
		DisableCompression:    true,
	}
}
