// Package errors provides the structured error taxonomy surfaced by the bridge.
//
// Errors are categorized by Phase (which boundary operation failed) and Kind
// (argument, state, construction, codec, marshal). The Error type carries the
// offending value, the handle the call was made on, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindState).
//		Handle(int64(h)).
//		Detail("Failed to resolve decoder handle").
//		Cause(resource.ErrStaleHandle).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Argument(errors.PhaseCreate, "frame size must be positive", frameSize)
//	err := errors.Codec(errors.PhaseEncode, "Failed to encode audio", cause)
//
// Translate maps failures from the codec engine, the handle table and the
// buffer marshaler onto these kinds, and a Translator logs every error it
// surfaces. Construction and marshal errors are sub-cases of codec errors:
//
//	errors.Is(err, errors.ErrCodec) // true for codec, construction, marshal
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
