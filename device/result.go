package device

import "fmt"

// Result is the status code returned by driver calls.
type Result uint32

const (
	OK               Result = 0
	Dirty            Result = 1
	ErrBug           Result = 10000
	ErrNoInit        Result = 10001
	ErrLogicLoad     Result = 10002
	ErrInterface     Result = 10003
	ErrOutOfRange    Result = 10004
	ErrNotSupported  Result = 10005
	ErrNotFound      Result = 10006
	ErrFilterDone    Result = 10007
	NoFrame          Result = 10008
	ErrSave          Result = 10009
	ErrMismatched    Result = 10010
	ErrBusy          Result = 10011
	ErrInvalidHandle Result = 10012
	ErrTimeout       Result = 10013
	ErrFrameGrabber  Result = 10014
	ErrNoConversion  Result = 10015
	ErrFilterSkip    Result = 10016
	ErrWrongVersion  Result = 10017
	ErrPacket        Result = 10018
	ErrWrongFormat   Result = 10019
	ErrWrongSize     Result = 10020
	ErrCapStop       Result = 10021
	ErrOutOfMemory   Result = 10022
	ErrRFU           Result = 10023
)

var resultNames = map[Result]string{
	OK:               "I_OK",
	Dirty:            "I_DIRTY",
	ErrBug:           "E_BUG",
	ErrNoInit:        "E_NOINIT",
	ErrLogicLoad:     "E_LOGICLOADFAILED",
	ErrInterface:     "E_INTERFACE_ERROR",
	ErrOutOfRange:    "E_OUT_OF_RANGE",
	ErrNotSupported:  "E_NOT_SUPPORTED",
	ErrNotFound:      "E_NOT_FOUND",
	ErrFilterDone:    "E_FILTER_DONE",
	NoFrame:          "E_NO_FRAME",
	ErrSave:          "E_SAVE_ERROR",
	ErrMismatched:    "E_MISMATCHED",
	ErrBusy:          "E_BUSY",
	ErrInvalidHandle: "E_INVALID_HANDLE",
	ErrTimeout:       "E_TIMEOUT",
	ErrFrameGrabber:  "E_FRAMEGRABBER",
	ErrNoConversion:  "E_NO_CONVERSION",
	ErrFilterSkip:    "E_FILTER_SKIP_FRAME",
	ErrWrongVersion:  "E_WRONG_VERSION",
	ErrPacket:        "E_PACKET_ERROR",
	ErrWrongFormat:   "E_WRONG_FORMAT",
	ErrWrongSize:     "E_WRONG_SIZE",
	ErrCapStop:       "E_CAPSTOP",
	ErrOutOfMemory:   "E_OUT_OF_MEMORY",
	ErrRFU:           "E_RFU",
}

// String returns the driver's symbolic name for r.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("E_UNKNOWN(%d)", uint32(r))
}

// OK reports whether r is a success code.
func (r Result) OK() bool {
	return r == OK
}
