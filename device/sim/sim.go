// Package sim provides a simulated line-scan camera implementing device.Adapter.
//
// The simulator produces frames at a configurable cadence, either synthetic
// (a horizontal gradient with a bright line sweeping down the frame) or
// replayed from a raw recording. Faults can be injected at every driver call
// so that the capture session's error paths can be exercised without
// hardware.
package sim

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/e7canasta/orion-thermal-capture/device"
)

// Faults configures injected driver failures. The zero value injects nothing.
type Faults struct {
	// OpenFails makes Open return device.InvalidHandle.
	OpenFails bool
	// InitFails makes IsInitialized report false.
	InitFails bool
	// CalibrationResult is returned by LoadCalibration when non-zero.
	CalibrationResult device.Result
	// StartResult is returned by StartCapture when non-zero.
	StartResult device.Result
	// StopResult is returned by StopCapture when non-zero.
	StopResult device.Result
	// NeverCapturing keeps IsCapturing false after StartCapture.
	NeverCapturing bool
	// NoFrames makes GetFrame report NoFrame forever.
	NoFrames bool
	// FrameError is returned by GetFrame once FrameErrorAfter frames have
	// been delivered. Zero disables the fault.
	FrameError      device.Result
	FrameErrorAfter int
	// GetFrameDelay stalls every GetFrame call, simulating a hung driver.
	GetFrameDelay time.Duration
}

// Config describes the simulated camera.
type Config struct {
	Width  uint32
	Height uint32
	// FrameType defaults to 16bpp-gray when left at the native zero value.
	FrameType device.FrameType
	// FrameInterval is the native cadence. Zero delivers a frame on every poll.
	FrameInterval time.Duration
	// CaptureDelay is how many IsCapturing polls report false after a
	// successful StartCapture.
	CaptureDelay int
	// Replay holds raw frames to loop over instead of synthetic frames.
	Replay []byte

	Faults Faults
	Logger *slog.Logger
}

// Camera is a simulated camera. It is safe for concurrent use.
type Camera struct {
	cfg       Config
	frameSize uint32
	log       *slog.Logger

	mu           sync.Mutex
	nextHandle   device.Handle
	handle       device.Handle
	capturing    bool
	captureDelay int
	lastFrameAt  time.Time
	delivered    int
	closeCalls   int
	startCalls   int
	stopCalls    int
	calibration  string
	properties   map[string]string
}

// New validates cfg and returns a closed camera.
func New(cfg Config) (*Camera, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("sim: invalid geometry %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FrameType < device.FrameTypeUnknown || cfg.FrameType > device.FrameType32BGR {
		return nil, fmt.Errorf("sim: invalid frame type %d", cfg.FrameType)
	}
	if cfg.FrameType == device.FrameTypeNative {
		cfg.FrameType = device.FrameType16Gray
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	bpp := cfg.FrameType.PixelSize()
	if bpp == 0 {
		// Native and unknown layouts are raw 16-bit on this sensor family.
		bpp = 2
	}
	size := cfg.Width * cfg.Height * uint32(bpp)

	if cfg.Replay != nil && (len(cfg.Replay) == 0 || len(cfg.Replay)%int(size) != 0) {
		return nil, fmt.Errorf("sim: replay length %d is not a multiple of frame size %d",
			len(cfg.Replay), size)
	}

	return &Camera{
		cfg:        cfg,
		frameSize:  size,
		log:        cfg.Logger,
		nextHandle: 1,
		properties: map[string]string{},
	}, nil
}

// LoadReplay reads a raw recording for Config.Replay. Control frames must not
// be interleaved in the file.
func LoadReplay(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to read replay: %w", err)
	}
	return data, nil
}

// Open implements device.Adapter.
func (c *Camera) Open(path string) device.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Faults.OpenFails || c.handle.Valid() {
		return device.InvalidHandle
	}
	c.handle = c.nextHandle
	c.nextHandle++

	c.log.Debug("sim: camera opened", "path", path, "handle", c.handle)
	return c.handle
}

// Close implements device.Adapter.
func (c *Camera) Close(h device.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeCalls++
	if h != c.handle || !h.Valid() {
		return
	}
	c.handle = device.InvalidHandle
	c.capturing = false

	c.log.Debug("sim: camera closed", "handle", h, "frames_delivered", c.delivered)
}

// IsInitialized implements device.Adapter.
func (c *Camera) IsInitialized(h device.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(h) && !c.cfg.Faults.InitFails
}

// LoadCalibration implements device.Adapter.
func (c *Camera) LoadCalibration(h device.Handle, path string, flags device.CalibrationFlags) device.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked(h) {
		return device.ErrInvalidHandle
	}
	if r := c.cfg.Faults.CalibrationResult; r != device.OK {
		return r
	}
	if path == "" {
		return device.ErrNotFound
	}
	c.calibration = path
	return device.OK
}

// StartCapture implements device.Adapter.
func (c *Camera) StartCapture(h device.Handle) device.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startCalls++
	if !c.validLocked(h) {
		return device.ErrInvalidHandle
	}
	if r := c.cfg.Faults.StartResult; r != device.OK {
		return r
	}
	c.capturing = true
	c.captureDelay = c.cfg.CaptureDelay
	c.lastFrameAt = time.Time{}
	return device.OK
}

// StopCapture implements device.Adapter.
func (c *Camera) StopCapture(h device.Handle) device.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopCalls++
	if !c.validLocked(h) {
		return device.ErrInvalidHandle
	}
	if r := c.cfg.Faults.StopResult; r != device.OK {
		return r
	}
	c.capturing = false
	return device.OK
}

// IsCapturing implements device.Adapter.
func (c *Camera) IsCapturing(h device.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked(h) || !c.capturing || c.cfg.Faults.NeverCapturing {
		return false
	}
	if c.captureDelay > 0 {
		c.captureDelay--
		return false
	}
	return true
}

// FrameSize implements device.Adapter.
func (c *Camera) FrameSize(h device.Handle) uint32 {
	return c.frameSize
}

// FrameDims implements device.Adapter.
func (c *Camera) FrameDims(h device.Handle) (height, width uint32) {
	return c.cfg.Height, c.cfg.Width
}

// FrameType implements device.Adapter.
func (c *Camera) FrameType(h device.Handle) device.FrameType {
	return c.cfg.FrameType
}

// GetFrame implements device.Adapter.
func (c *Camera) GetFrame(h device.Handle, buf []byte, ft device.FrameType, flags device.GetFrameFlags) device.Result {
	if d := c.cfg.Faults.GetFrameDelay; d > 0 {
		time.Sleep(d)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked(h) {
		return device.ErrInvalidHandle
	}
	if !c.capturing {
		return device.ErrCapStop
	}
	if ft != c.cfg.FrameType && ft != device.FrameTypeNative {
		return device.ErrNoConversion
	}
	if uint32(len(buf)) < c.frameSize {
		return device.ErrWrongSize
	}
	f := c.cfg.Faults
	if f.FrameError != device.OK && c.delivered >= f.FrameErrorAfter {
		return f.FrameError
	}
	if f.NoFrames {
		return device.NoFrame
	}

	if interval := c.cfg.FrameInterval; interval > 0 && !c.lastFrameAt.IsZero() {
		due := c.lastFrameAt.Add(interval)
		if wait := time.Until(due); wait > 0 {
			if flags&device.GetFrameBlocking == 0 {
				return device.NoFrame
			}
			c.mu.Unlock()
			time.Sleep(wait)
			c.mu.Lock()
			if !c.capturing {
				return device.ErrCapStop
			}
		}
	}

	c.fillLocked(buf[:c.frameSize])
	c.delivered++
	c.lastFrameAt = time.Now()
	return device.OK
}

// SetProperty implements device.Adapter.
func (c *Camera) SetProperty(h device.Handle, name, value string) device.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked(h) {
		return device.ErrInvalidHandle
	}
	if name == "" {
		return device.ErrNotFound
	}
	c.properties[name] = value
	return device.OK
}

// GetProperty implements device.Adapter.
func (c *Camera) GetProperty(h device.Handle, name string) (string, device.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked(h) {
		return "", device.ErrInvalidHandle
	}
	v, ok := c.properties[name]
	if !ok {
		return "", device.ErrNotFound
	}
	return v, device.OK
}

// ErrorString implements device.Adapter.
func (c *Camera) ErrorString(r device.Result) string {
	return r.String()
}

// Stats is a snapshot of simulator call counters.
type Stats struct {
	Open        bool
	Capturing   bool
	Delivered   int
	StartCalls  int
	StopCalls   int
	CloseCalls  int
	Calibration string
}

// Stats returns the current call counters.
func (c *Camera) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Open:        c.handle.Valid(),
		Capturing:   c.capturing,
		Delivered:   c.delivered,
		StartCalls:  c.startCalls,
		StopCalls:   c.stopCalls,
		CloseCalls:  c.closeCalls,
		Calibration: c.calibration,
	}
}

func (c *Camera) validLocked(h device.Handle) bool {
	return h.Valid() && h == c.handle
}

// fillLocked writes frame number c.delivered into buf.
func (c *Camera) fillLocked(buf []byte) {
	if c.cfg.Replay != nil {
		n := len(c.cfg.Replay) / len(buf)
		off := (c.delivered % n) * len(buf)
		copy(buf, c.cfg.Replay[off:off+len(buf)])
		return
	}

	bpp := len(buf) / int(c.cfg.Width*c.cfg.Height)
	w, hgt := int(c.cfg.Width), int(c.cfg.Height)
	hot := c.delivered % hgt
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			v := uint32(x * 4096 / w)
			if y == hot {
				v = 0xFFFF
			}
			off := (y*w + x) * bpp
			switch bpp {
			case 1:
				buf[off] = byte(v >> 8)
			case 2:
				binary.LittleEndian.PutUint16(buf[off:], uint16(v))
			case 4:
				binary.LittleEndian.PutUint32(buf[off:], v)
			}
		}
	}
}
