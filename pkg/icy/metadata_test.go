package icy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Metadata
	}{
		{
			name:  "single pair",
			frame: "StreamTitle='Prospa - Prayer';",
			want:  Metadata{"StreamTitle": "Prospa - Prayer"},
		},
		{
			name:  "multiple pairs",
			frame: "StreamTitle='Song - Artist';StreamUrl='http://example.test';",
			want:  Metadata{"StreamTitle": "Song - Artist", "StreamUrl": "http://example.test"},
		},
		{
			name:  "nul padding stripped",
			frame: "StreamTitle='Song - Artist';\x00\x00\x00\x00\x00",
			want:  Metadata{"StreamTitle": "Song - Artist"},
		},
		{
			name:  "apostrophe inside value",
			frame: "StreamTitle='Don't Stop';",
			want:  Metadata{"StreamTitle": "Don't Stop"},
		},
		{
			name:  "unquoted value",
			frame: "StreamUrl=http://example.test;",
			want:  Metadata{"StreamUrl": "http://example.test"},
		},
		{
			name:  "missing trailing semicolon",
			frame: "StreamTitle='Song'",
			want:  Metadata{"StreamTitle": "Song"},
		},
		{
			name:  "empty frame",
			frame: "",
			want:  Metadata{},
		},
		{
			name:  "all padding",
			frame: "\x00\x00\x00\x00",
			want:  Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMetadata([]byte(tt.frame)))
		})
	}
}

func TestMetadataStreamTitle(t *testing.T) {
	m := ParseMetadata([]byte("StreamTitle='Prospa - Prayer';"))
	assert.Equal(t, "Prospa - Prayer", m.StreamTitle())

	assert.Empty(t, Metadata{}.StreamTitle())
}

func TestMetadataEquals(t *testing.T) {
	a := ParseMetadata([]byte("StreamTitle='Prospa - Prayer';"))
	b := ParseMetadata([]byte("StreamTitle='Prospa - Prayer';"))
	c := ParseMetadata([]byte("StreamTitle='Something Else';"))

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}
