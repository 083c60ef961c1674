package icy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// parsePLS returns the first File entry of a PLS playlist.
func parsePLS(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "File") {
			continue
		}
		if _, value, found := strings.Cut(line, "="); found {
			if value = strings.TrimSpace(value); value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("no stream URL found in PLS playlist")
}

// parseM3U returns the first URL entry of an M3U playlist.
func parseM3U(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	return "", fmt.Errorf("no stream URL found in M3U playlist")
}

// isPlaylistURL reports whether the URL path carries a playlist extension.
func isPlaylistURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch {
	case strings.HasSuffix(u.Path, ".pls"),
		strings.HasSuffix(u.Path, ".m3u"),
		strings.HasSuffix(u.Path, ".m3u8"):
		return true
	}
	return false
}

// resolveStreamURL fetches a playlist URL and returns the stream URL it
// points at. Non-playlist URLs are returned unchanged without a probe, so
// a direct stream is never connected twice.
func resolveStreamURL(client *http.Client, rawURL string) (string, error) {
	if !isPlaylistURL(rawURL) {
		return rawURL, nil
	}

	resp, err := client.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}
	content := string(body)

	contentType := resp.Header.Get("Content-Type")
	isPLS := strings.Contains(contentType, "audio/x-scpls") ||
		strings.Contains(contentType, "application/pls+xml") ||
		strings.Contains(content, "[playlist]") ||
		strings.HasSuffix(strings.TrimSuffix(rawURL, "/"), ".pls")

	if isPLS {
		return parsePLS(content)
	}
	return parseM3U(content)
}
