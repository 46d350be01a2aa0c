// Package device defines the contract of the camera driver boundary.
//
// The capture core never talks to a vendor SDK directly. It consumes an
// Adapter, whose methods mirror the driver's C entry points one to one:
// every operation that can fail returns a Result code instead of an error so
// that the caller decides how a given code maps onto its error taxonomy.
//
// Implementations:
//   - device/sim: simulated line-scan camera used by tests and the CLI
//   - vendor bindings live outside this module (cgo / DLL glue)
package device

// DefaultPath is the driver URL of the first attached camera.
const DefaultPath = "cam://0"

// Handle is an opaque driver handle. The zero value is invalid.
type Handle int32

// InvalidHandle is returned by Open when the driver could not open the camera.
const InvalidHandle Handle = 0

// Valid reports whether h refers to an opened camera.
func (h Handle) Valid() bool {
	return h != InvalidHandle
}

// GetFrameFlags modify GetFrame behaviour.
type GetFrameFlags uint32

const (
	// GetFrameNonBlocking polls: NoFrame is returned when nothing is ready.
	GetFrameNonBlocking GetFrameFlags = 0
	// GetFrameBlocking waits for the next frame inside the driver.
	GetFrameBlocking GetFrameFlags = 1
	// GetFrameNoConversion returns the native frame without conversion.
	GetFrameNoConversion GetFrameFlags = 2
	// GetFrameFetchPFF fetches the per-frame footer.
	GetFrameFetchPFF GetFrameFlags = 4
)

// CalibrationFlags modify LoadCalibration behaviour.
type CalibrationFlags uint32

const (
	// CalibrationNone only unpacks the calibration data.
	CalibrationNone CalibrationFlags = 0
	// CalibrationStartSoftwareCorrection starts the software correction
	// filter after unpacking the calibration data.
	CalibrationStartSoftwareCorrection CalibrationFlags = 1
)

// Adapter is the driver boundary consumed by the capture session.
//
// Implementations must be safe for one controller goroutine and one
// acquisition goroutine calling concurrently: the session polls GetFrame from
// its loop while the controller may query IsCapturing or the frame geometry.
type Adapter interface {
	// Open connects to the camera at path. InvalidHandle signals failure.
	Open(path string) Handle
	// Close releases the handle. Must be called exactly once per valid handle.
	Close(h Handle)
	// IsInitialized reports whether the camera passed its initialisation check.
	IsInitialized(h Handle) bool
	// LoadCalibration loads a calibration pack (.xca) from path.
	LoadCalibration(h Handle, path string, flags CalibrationFlags) Result

	StartCapture(h Handle) Result
	StopCapture(h Handle) Result
	IsCapturing(h Handle) bool

	// FrameSize is the size of one frame in bytes.
	FrameSize(h Handle) uint32
	// FrameDims returns the frame geometry as (height, width).
	FrameDims(h Handle) (height, width uint32)
	// FrameType returns the frame type delivered by GetFrame.
	FrameType(h Handle) FrameType
	// GetFrame copies the next frame into buf. In non-blocking mode NoFrame
	// is an expected, cheap outcome.
	GetFrame(h Handle, buf []byte, ft FrameType, flags GetFrameFlags) Result

	// SetProperty writes a named camera property.
	SetProperty(h Handle, name, value string) Result
	// GetProperty reads a named camera property.
	GetProperty(h Handle, name string) (string, Result)

	// ErrorString renders a driver result code.
	ErrorString(r Result) string
}
