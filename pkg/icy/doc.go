// Package icy extracts now-playing metadata from SHOUTcast/Icecast streams.
//
// A Radio owns the connection lifecycle: it requests the stream with the
// ICY metadata extension enabled, repairs non-conformant `ICY 200 OK`
// status lines on the wire so net/http can parse the response, and splits
// the interleaved byte stream into audio and metadata with a Demuxer.
// Every connection attempt ends in one of three outcomes - transport
// error, metadata-less stream, or metadata received - and each outcome
// arms its own retry interval before the next attempt.
package icy
