package capture

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ControlFrameSize is the size of the timestamp record written ahead of a
// frame payload for sinks registered with control frames.
const ControlFrameSize = 4

// EncodeControlFrame encodes elapsed as unsigned 32-bit little-endian
// milliseconds. Values past the uint32 range wrap (about 49.7 days).
func EncodeControlFrame(elapsed time.Duration) [ControlFrameSize]byte {
	var b [ControlFrameSize]byte
	binary.LittleEndian.PutUint32(b[:], uint32(elapsed.Milliseconds()))
	return b
}

// DecodeControlFrame is the inverse of EncodeControlFrame.
func DecodeControlFrame(b []byte) (time.Duration, error) {
	if len(b) < ControlFrameSize {
		return 0, fmt.Errorf("capture: control frame needs %d bytes, got %d", ControlFrameSize, len(b))
	}
	ms := binary.LittleEndian.Uint32(b)
	return time.Duration(ms) * time.Millisecond, nil
}
