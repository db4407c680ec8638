package errors

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/resource"
	"github.com/plasmoverse/opusbridge/transcoder"
)

// Status codes returned across the guest ABI. Non-negative values are
// results; negative values name the error kind.
const (
	StatusOK           int32 = 0
	StatusArgument     int32 = -1
	StatusState        int32 = -2
	StatusCodec        int32 = -3
	StatusConstruction int32 = -4
	StatusMarshal      int32 = -5
)

// Translate converts an internal failure into a boundary error.
// Errors that are already *Error keep their kind and detail; the phase and
// detail are only filled in when missing.
func Translate(phase Phase, detail string, err error) *Error {
	if err == nil {
		return nil
	}

	var be *Error
	if stderrors.As(err, &be) {
		if be.Phase == "" {
			be.Phase = phase
		}
		if be.Detail == "" {
			be.Detail = detail
		}
		return be
	}

	kind := KindCodec
	switch {
	case resource.IsHandleError(err):
		kind = KindState
	case isMarshal(err):
		kind = KindMarshal
	case isFault(err) && phase == PhaseCreate:
		kind = KindConstruction
	}

	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  err,
	}
}

func isMarshal(err error) bool {
	var me *transcoder.Error
	return stderrors.As(err, &me)
}

func isFault(err error) bool {
	var f *codec.Fault
	return stderrors.As(err, &f)
}

// KindOf returns the kind of a boundary error, or "" for foreign errors.
func KindOf(err error) Kind {
	var be *Error
	if stderrors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// Status maps an error to its guest ABI status code.
// Errors that were never translated report StatusCodec.
func Status(err error) int32 {
	if err == nil {
		return StatusOK
	}
	switch KindOf(err) {
	case KindArgument:
		return StatusArgument
	case KindState:
		return StatusState
	case KindConstruction:
		return StatusConstruction
	case KindMarshal:
		return StatusMarshal
	default:
		return StatusCodec
	}
}

// KindFromStatus is the inverse of Status. Non-negative codes return "".
func KindFromStatus(code int32) Kind {
	switch code {
	case StatusArgument:
		return KindArgument
	case StatusState:
		return KindState
	case StatusCodec:
		return KindCodec
	case StatusConstruction:
		return KindConstruction
	case StatusMarshal:
		return KindMarshal
	default:
		return ""
	}
}

// Translator is the single place where failures leave the bridge.
// Every surfaced error is logged and reported to the observer first.
type Translator struct {
	logger  *zap.Logger
	observe func(*Error)
}

// NewTranslator creates a translator. A nil logger discards output and a
// nil observer is ignored.
func NewTranslator(logger *zap.Logger, observe func(*Error)) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{logger: logger, observe: observe}
}

// Surface translates err, stamps the handle, logs and returns it.
func (t *Translator) Surface(phase Phase, detail string, handle int64, err error) *Error {
	e := Translate(phase, detail, err)
	if e == nil {
		return nil
	}
	if e.Handle == 0 {
		e.Handle = handle
	}

	fields := []zap.Field{
		zap.String("phase", string(e.Phase)),
		zap.String("kind", string(e.Kind)),
	}
	if e.Handle != 0 {
		fields = append(fields, zap.Int64("handle", e.Handle))
	}
	if e.Value != nil {
		fields = append(fields, zap.Any("value", e.Value))
	}
	if e.Cause != nil {
		fields = append(fields, zap.NamedError("cause", e.Cause))
	}
	t.logger.Warn(e.Detail, fields...)

	if t.observe != nil {
		t.observe(e)
	}
	return e
}

// Logger returns the logger used for surfaced errors.
func (t *Translator) Logger() *zap.Logger {
	return t.logger
}
