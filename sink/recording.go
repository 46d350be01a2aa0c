package sink

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/e7canasta/orion-thermal-capture/capture"
)

// ReadRecording walks a raw recording of frameSize-byte frames, calling fn
// for each. With controlFrames set every frame is expected to be preceded by
// its control frame and elapsed is decoded from it; otherwise elapsed is 0.
// It returns the number of frames read. A truncated trailing frame yields
// io.ErrUnexpectedEOF.
func ReadRecording(r io.Reader, frameSize int, controlFrames bool, fn func(i int, elapsed time.Duration, frame []byte) error) (int, error) {
	if frameSize <= 0 {
		return 0, fmt.Errorf("sink: invalid frame size %d", frameSize)
	}

	var ctrl [capture.ControlFrameSize]byte
	for i := 0; ; i++ {
		var elapsed time.Duration
		if controlFrames {
			if _, err := io.ReadFull(r, ctrl[:]); err != nil {
				if errors.Is(err, io.EOF) {
					return i, nil
				}
				return i, err
			}
			elapsed, _ = capture.DecodeControlFrame(ctrl[:])
		}

		frame := make([]byte, frameSize)
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) && !controlFrames {
				return i, nil
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return i, err
		}
		if err := fn(i, elapsed, frame); err != nil {
			return i + 1, err
		}
	}
}
