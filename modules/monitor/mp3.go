package monitor

// findFrameSync returns the offset of the first MP3 frame sync word in
// data, or -1. The sync word is 0xFF followed by a byte whose high nibble
// is 0xE or 0xF. Recordings are trimmed to start on a frame boundary so
// players do not choke on a partial frame.
func findFrameSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return i
		}
	}
	return -1
}
