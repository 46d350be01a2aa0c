package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/e7canasta/orion-thermal-capture/device"
	"github.com/e7canasta/orion-thermal-capture/envi"
	"github.com/e7canasta/orion-thermal-capture/internal/cadence"
)

// Metadata keys, in the order BuildRunMetadata emits them.
const (
	KeySamples     = "samples"
	KeyBands       = "bands"
	KeyLines       = "lines"
	KeyDataType    = "data type"
	KeyInterleave  = "interleave"
	KeyByteOrder   = "byte order"
	KeyDescription = "description"
)

// CadenceStats is re-exported from internal/cadence.
type CadenceStats = cadence.Stats

// RunState is the final state of a recording, input to BuildRunMetadata.
type RunState struct {
	Height     uint32
	Width      uint32
	Frames     uint64
	FrameType  device.FrameType
	Duration   time.Duration
	Timestamps []time.Duration
}

// RunMetadata describes a finished recording. Fields is the flat ENVI-style
// record; the remaining members are informational.
type RunMetadata struct {
	RunID   string
	Fields  []envi.Field
	Cadence CadenceStats
}

// Value returns the value stored under key.
func (m *RunMetadata) Value(key string) (any, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Int returns an integer field.
func (m *RunMetadata) Int(key string) (int, bool) {
	v, ok := m.Value(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// PixelDataType maps a pixel width in bytes to its ENVI data type code
// (unsigned integer of that width). Only 1, 2 and 4 byte pixels exist on the
// supported cameras.
func PixelDataType(pixelSize int) (int, error) {
	switch pixelSize {
	case 1, 2, 4:
		return envi.DataType("u" + strconv.Itoa(pixelSize))
	default:
		return 0, fmt.Errorf("%w: %d bytes", ErrUnsupportedPixelSize, pixelSize)
	}
}

// BuildRunMetadata assembles the end-of-run record. Bands carries the frame
// count: every frame of a line-scan camera is one band of the cube.
func BuildRunMetadata(st RunState) (*RunMetadata, error) {
	dataType, err := PixelDataType(st.FrameType.PixelSize())
	if err != nil {
		return nil, fmt.Errorf("%w (frame type %s)", err, st.FrameType)
	}

	return &RunMetadata{
		Fields: []envi.Field{
			{Key: KeySamples, Value: int(st.Width)},
			{Key: KeyBands, Value: int(st.Frames)},
			{Key: KeyLines, Value: int(st.Height)},
			{Key: KeyDataType, Value: dataType},
			{Key: KeyInterleave, Value: "bil"},
			{Key: KeyByteOrder, Value: 1},
			{Key: KeyDescription, Value: Description(st.Duration, st.Timestamps)},
		},
		Cadence: cadence.Compute(st.Timestamps, st.Duration),
	}, nil
}

// Description renders the recording duration and the per-frame timestamps in
// milliseconds.
func Description(total time.Duration, timestamps []time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recording duration %d ms. Frame timestamps (ms): [", total.Milliseconds())
	for i, ts := range timestamps {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatInt(ts.Milliseconds(), 10))
	}
	b.WriteString("]")
	return b.String()
}
