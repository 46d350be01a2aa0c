package device

import "fmt"

// FrameType enumerates the pixel layouts a camera can deliver.
type FrameType int32

const (
	FrameTypeUnknown FrameType = -1
	FrameTypeNative  FrameType = 0
	FrameType8Gray   FrameType = 1
	FrameType16Gray  FrameType = 2
	FrameType32Gray  FrameType = 3
	FrameType32RGBA  FrameType = 4
	FrameType32RGB   FrameType = 5
	FrameType32BGRA  FrameType = 6
	FrameType32BGR   FrameType = 7
)

// PixelSize returns the number of bytes per pixel. Unknown and native types
// report 0: the caller has to ask the camera for its concrete type.
func (t FrameType) PixelSize() int {
	switch t {
	case FrameType8Gray:
		return 1
	case FrameType16Gray:
		return 2
	case FrameType32Gray, FrameType32RGBA, FrameType32RGB, FrameType32BGRA, FrameType32BGR:
		return 4
	default:
		return 0
	}
}

func (t FrameType) String() string {
	switch t {
	case FrameTypeUnknown:
		return "unknown"
	case FrameTypeNative:
		return "native"
	case FrameType8Gray:
		return "8bpp-gray"
	case FrameType16Gray:
		return "16bpp-gray"
	case FrameType32Gray:
		return "32bpp-gray"
	case FrameType32RGBA:
		return "32bpp-rgba"
	case FrameType32RGB:
		return "32bpp-rgb"
	case FrameType32BGRA:
		return "32bpp-bgra"
	case FrameType32BGR:
		return "32bpp-bgr"
	default:
		return fmt.Sprintf("frametype(%d)", int32(t))
	}
}

// ParseFrameType maps the names returned by String back to a FrameType.
func ParseFrameType(s string) (FrameType, error) {
	for t := FrameTypeUnknown; t <= FrameType32BGR; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return FrameTypeUnknown, fmt.Errorf("device: unknown frame type %q", s)
}
