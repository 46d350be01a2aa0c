package capture_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-thermal-capture/capture"
	"github.com/e7canasta/orion-thermal-capture/device"
)

func TestBuildRunMetadata(t *testing.T) {
	timestamps := make([]time.Duration, 10)
	for i := range timestamps {
		timestamps[i] = time.Duration(i*33) * time.Millisecond
	}

	meta, err := capture.BuildRunMetadata(capture.RunState{
		Height:     4,
		Width:      8,
		Frames:     10,
		FrameType:  device.FrameType16Gray,
		Duration:   330 * time.Millisecond,
		Timestamps: timestamps,
	})
	require.NoError(t, err)

	keys := make([]string, len(meta.Fields))
	for i, f := range meta.Fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"samples", "bands", "lines", "data type", "interleave", "byte order", "description"}, keys)

	tests := []struct {
		key  string
		want any
	}{
		{capture.KeySamples, 8},
		{capture.KeyLines, 4},
		{capture.KeyBands, 10},
		{capture.KeyDataType, 12},
		{capture.KeyInterleave, "bil"},
		{capture.KeyByteOrder, 1},
		{capture.KeyDescription, "Recording duration 330 ms. Frame timestamps (ms): [0, 33, 66, 99, 132, 165, 198, 231, 264, 297]"},
	}
	for _, tt := range tests {
		got, ok := meta.Value(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}

	assert.Equal(t, 10, meta.Cadence.Frames)
	assert.InDelta(t, 30.3, meta.Cadence.RateMean, 0.1)

	_, ok := meta.Value("wavelength")
	assert.False(t, ok)
}

func TestBuildRunMetadataRejectsUnknownPixelSize(t *testing.T) {
	_, err := capture.BuildRunMetadata(capture.RunState{Height: 1, Width: 1, FrameType: device.FrameTypeNative})
	assert.ErrorIs(t, err, capture.ErrUnsupportedPixelSize)
}

func TestPixelDataType(t *testing.T) {
	tests := []struct {
		size    int
		want    int
		wantErr bool
	}{
		{1, 1, false},
		{2, 12, false},
		{4, 13, false},
		{0, 0, true},
		{3, 0, true},
		{8, 0, true},
	}
	for _, tt := range tests {
		got, err := capture.PixelDataType(tt.size)
		if tt.wantErr {
			assert.ErrorIs(t, err, capture.ErrUnsupportedPixelSize, "size %d", tt.size)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "size %d", tt.size)
	}

	assert.Equal(t, 2, device.FrameType16Gray.PixelSize())
}

func TestDescriptionWithoutFrames(t *testing.T) {
	assert.Equal(t, "Recording duration 0 ms. Frame timestamps (ms): []", capture.Description(0, nil))
}

func TestControlFrameRoundTrip(t *testing.T) {
	b := capture.EncodeControlFrame(1234 * time.Millisecond)
	assert.Equal(t, [4]byte{0xD2, 0x04, 0x00, 0x00}, b)

	d, err := capture.DecodeControlFrame(b[:])
	require.NoError(t, err)
	assert.Equal(t, 1234*time.Millisecond, d)

	_, err = capture.DecodeControlFrame(b[:3])
	assert.Error(t, err)
}
