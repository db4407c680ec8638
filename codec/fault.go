package codec

import "fmt"

// Engine status codes, as reported by libopus.
const (
	FaultNone           = 0
	FaultBadArg         = -1
	FaultBufferTooSmall = -2
	FaultInternal       = -3
	FaultInvalidPacket  = -4
	FaultUnimplemented  = -5
	FaultInvalidState   = -6
	FaultAllocFail      = -7
)

var faultText = map[int]string{
	FaultBadArg:         "invalid argument",
	FaultBufferTooSmall: "buffer too small",
	FaultInternal:       "internal error",
	FaultInvalidPacket:  "corrupted stream",
	FaultUnimplemented:  "request not implemented",
	FaultInvalidState:   "invalid state",
	FaultAllocFail:      "memory allocation failed",
}

// Fault is a failure reported by the codec engine.
type Fault struct {
	Op   string
	Code int
	Err  error
}

// NewFault creates a fault for op. err may be nil when the code says enough.
func NewFault(op string, code int, err error) *Fault {
	return &Fault{Op: op, Code: code, Err: err}
}

func (f *Fault) Error() string {
	msg := "codec " + f.Op + " failed"
	if text, ok := faultText[f.Code]; ok {
		msg += fmt.Sprintf(" (%d: %s)", f.Code, text)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error {
	return f.Err
}
