package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which boundary operation produced the error
type Phase string

const (
	PhaseCreate  Phase = "create"  // session construction
	PhaseReset   Phase = "reset"   // codec state reset
	PhaseClose   Phase = "close"   // session teardown
	PhaseDecode  Phase = "decode"  // encoded bytes to samples
	PhaseEncode  Phase = "encode"  // samples to encoded bytes
	PhaseBitrate Phase = "bitrate" // bitrate get/set
	PhaseConfig  Phase = "config"  // bridge configuration
	PhaseLink    Phase = "link"    // host module registration
	PhaseLoad    Phase = "load"    // guest module loading
	PhaseRuntime Phase = "runtime" // guest calls
)

// Kind categorizes the error
type Kind string

const (
	KindArgument     Kind = "argument"
	KindState        Kind = "state"
	KindConstruction Kind = "construction"
	KindCodec        Kind = "codec"
	KindMarshal      Kind = "marshal"
)

// Error is the structured error surfaced at the boundary
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Handle int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		fmt.Fprintf(&b, " handle %#x", e.Handle)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches any phase, and a codec target also
// matches construction and marshal errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Kind == KindCodec {
		return e.IsCodec()
	}
	return t.Kind == e.Kind
}

// IsCodec reports whether the error came from the codec engine side:
// engine faults, construction rejections and buffer marshaling failures.
func (e *Error) IsCodec() bool {
	switch e.Kind {
	case KindCodec, KindConstruction, KindMarshal:
		return true
	default:
		return false
	}
}

// Targets for errors.Is matching by kind alone.
var (
	ErrArgument     = &Error{Kind: KindArgument}
	ErrState        = &Error{Kind: KindState}
	ErrConstruction = &Error{Kind: KindConstruction}
	ErrCodec        = &Error{Kind: KindCodec}
	ErrMarshal      = &Error{Kind: KindMarshal}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the handle the failing call was made on
func (b *Builder) Handle(h int64) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the boundary error kinds

// Argument creates an invalid argument error
func Argument(phase Phase, detail string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArgument,
		Detail: detail,
		Value:  value,
	}
}

// State creates a handle misuse error
func State(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindState,
		Detail: detail,
		Cause:  cause,
	}
}

// Construction creates an engine rejection error for session creation
func Construction(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindConstruction,
		Detail: detail,
		Cause:  cause,
	}
}

// Codec creates an engine fault error
func Codec(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCodec,
		Detail: detail,
		Cause:  cause,
	}
}

// Marshal creates a buffer copy failure error
func Marshal(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMarshal,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
