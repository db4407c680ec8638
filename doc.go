// Package opusbridge lets a managed caller drive native Opus encoders and
// decoders through opaque integer handles.
//
// The bridge owns every native codec instance and hands out int64 handles
// instead of pointers. Buffers are copied across the boundary with explicit
// lengths, and every native failure is translated into a typed error.
//
// # Architecture Overview
//
//	opusbridge/          Bridge: handle-based create/reset/close/encode/decode/bitrate
//	├── codec/           Engine contract, application modes, bitrate rules
//	│   └── libopus/     libopus engine (cgo)
//	├── session/         Decoder and Encoder sessions with fixed sizing
//	├── resource/        Generation-checked handle table with per-handle guards
//	├── transcoder/      Buffer copies for Go slices and guest linear memory
//	├── errors/          Argument, state, construction, codec and marshal errors
//	├── metrics/         Prometheus collectors
//	├── engine/          wazero runtime wrapper and linear memory adapter
//	├── linker/          The "opus" host module for WebAssembly guests
//	└── runtime/         Loads guests linked against the bridge
//
// # Quick Start
//
//	b, err := opusbridge.New(opusbridge.DefaultConfig(libopus.New()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	enc, err := b.CreateEncoder(48000, true, 2048, 4000)
//	dec, err := b.CreateDecoder(48000, true, 960)
//
//	packet, err := b.Encode(enc, pcm)
//	samples, err := b.Decode(dec, packet)
//
//	err = b.CloseEncoder(&enc) // enc is now 0
//
// # Handles
//
// Handle 0 means "no session". Closing a session writes 0 back into the
// caller's handle variable. Using a handle that was closed, that never
// existed or that refers to the other session type fails with a state
// error, even after its slot was reused.
//
// # Concurrency
//
// Calls on different handles run in parallel. Calls on the same handle are
// serialized, and Close waits for calls in flight on that handle.
//
// # Errors
//
// Failures return the zero value together with an *errors.Error:
//
//	_, err := b.Decode(h, packet)
//	if errors.Is(err, errors.ErrState) { ... }  // bad or closed handle
//	if errors.Is(err, errors.ErrCodec) { ... }  // engine, construction or marshal failure
//
// Every surfaced error is logged through the configured zap logger first.
package opusbridge
