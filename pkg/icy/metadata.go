package icy

import "strings"

// Metadata is one decoded ICY metadata frame: repeated Key='Value';
// pairs, most commonly just StreamTitle.
type Metadata map[string]string

// ParseMetadata decodes a NUL-padded metadata frame into key/value pairs.
// Values are usually single-quoted; an unquoted value runs to the next
// semicolon. Malformed trailing garbage is dropped rather than erroring,
// servers are not reliable about padding.
func ParseMetadata(b []byte) Metadata {
	m := Metadata{}

	s := strings.TrimRight(string(b), "\x00")
	for s != "" {
		eq := strings.Index(s, "=")
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		rest := s[eq+1:]

		var value string
		if strings.HasPrefix(rest, "'") {
			// Quoted value, closed by "';" or by end of frame. Scanning for
			// the pair keeps apostrophes inside titles intact.
			if end := strings.Index(rest[1:], "';"); end >= 0 {
				value = rest[1 : 1+end]
				rest = rest[end+3:]
			} else {
				value = strings.TrimSuffix(rest[1:], "'")
				rest = ""
			}
		} else {
			if semi := strings.Index(rest, ";"); semi >= 0 {
				value = rest[:semi]
				rest = rest[semi+1:]
			} else {
				value = rest
				rest = ""
			}
		}

		if key != "" {
			m[key] = value
		}
		s = rest
	}

	return m
}

// StreamTitle returns the conventional now-playing field.
func (m Metadata) StreamTitle() string {
	return m["StreamTitle"]
}

// Equals reports whether both frames carry the same pairs.
func (m Metadata) Equals(other Metadata) bool {
	if other == nil || len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if other[k] != v {
			return false
		}
	}
	return true
}
