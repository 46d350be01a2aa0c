package capture

import (
	"errors"
	"fmt"

	"github.com/e7canasta/orion-thermal-capture/device"
)

// Error kinds, matched with errors.Is. Cleanup paths that collect several
// failures return an errors.Join of them.
var (
	ErrDeviceOpen           = errors.New("capture: device open failed")
	ErrInitialization       = errors.New("capture: device initialization failed")
	ErrCalibration          = errors.New("capture: calibration load failed")
	ErrStartCapture         = errors.New("capture: start capture failed")
	ErrStopCapture          = errors.New("capture: stop capture failed")
	ErrNotCapturing         = errors.New("capture: camera is not capturing")
	ErrFrameRead            = errors.New("capture: frame read failed")
	ErrFrameReadTimeout     = errors.New("capture: frame read timed out")
	ErrAlreadyRecording     = errors.New("capture: already recording")
	ErrNotRecording         = errors.New("capture: not recording")
	ErrThreadShutdown       = errors.New("capture: acquisition loop did not stop")
	ErrSessionBusy          = errors.New("capture: session busy")
	ErrUnsupportedPixelSize = errors.New("capture: unsupported pixel size")
	ErrNotOpen              = errors.New("capture: session not open")
	ErrAlreadyOpened        = errors.New("capture: session already opened")
	ErrSinkWrite            = errors.New("capture: sink write failed")
	ErrProperty             = errors.New("capture: property access failed")
)

// DeviceError carries a driver result code. It unwraps to its Kind.
type DeviceError struct {
	Kind    error
	Op      string
	Code    device.Result
	Message string
}

func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("%v: %s returned %s (%d)", e.Kind, e.Op, e.Code, uint32(e.Code))
	if e.Message != "" && e.Message != e.Code.String() {
		msg += ": " + e.Message
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Kind
}

func (s *Session) deviceError(kind error, op string, code device.Result) error {
	return &DeviceError{
		Kind:    kind,
		Op:      op,
		Code:    code,
		Message: s.dev.ErrorString(code),
	}
}
