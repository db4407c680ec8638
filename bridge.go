package opusbridge

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/metrics"
	"github.com/plasmoverse/opusbridge/resource"
	"github.com/plasmoverse/opusbridge/session"
)

// Bridge dispatches handle-based codec calls. It owns every session it
// creates and is safe for concurrent use; calls on the same handle are
// serialized.
type Bridge struct {
	engine     codec.Engine
	table      *resource.Table
	translator *errors.Translator
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// New creates a bridge.
func New(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var collector *metrics.Collector
	if cfg.Metrics {
		collector = metrics.New(cfg.Registerer)
	}

	b := &Bridge{
		engine:  cfg.Engine,
		table:   resource.NewTable(),
		logger:  logger,
		metrics: collector,
	}
	b.translator = errors.NewTranslator(logger, func(e *errors.Error) {
		b.metrics.ObserveError(string(e.Kind))
	})
	if collector != nil {
		b.table.Subscribe(collector)
	}

	logger.Debug("bridge created",
		zap.String("engine", cfg.Engine.Name()),
		zap.String("version", cfg.Engine.Version()))
	return b, nil
}

// Engine returns the codec engine sessions are created with.
func (b *Bridge) Engine() codec.Engine {
	return b.engine
}

// Translator returns the translator every failure is surfaced through.
func (b *Bridge) Translator() *errors.Translator {
	return b.translator
}

func (b *Bridge) fail(op string, phase errors.Phase, detail string, h resource.Handle, err error) error {
	b.metrics.ObserveOp(op, err)
	return b.translator.Surface(phase, detail, int64(h), err)
}

func (b *Bridge) ok(op string) {
	b.metrics.ObserveOp(op, nil)
}

func (b *Bridge) register(op string, kind resource.SessionType, value resource.Closer, detail string) (resource.Handle, error) {
	h, err := b.table.Insert(kind.ID(), value)
	if err != nil {
		_ = value.Close()
		return resource.Invalid, b.fail(op, errors.PhaseCreate, detail, resource.Invalid, err)
	}
	b.ok(op)
	b.logger.Debug("session registered", zap.Stringer("type", kind), zap.Int64("handle", int64(h)))
	return h, nil
}

// with resolves h to a live session of the given type and runs fn while
// holding the handle guard.
func with[T any](b *Bridge, h resource.Handle, kind resource.SessionType, phase errors.Phase, fn func(T) error) error {
	v, release, err := b.table.Acquire(h, kind.ID())
	if err != nil {
		return errors.State(phase, "Failed to resolve "+kind.String()+" handle", err)
	}
	defer release()
	return fn(v.(T))
}

// CreateDecoder creates a decoder session and returns its handle.
// Failures return the zero handle.
func (b *Bridge) CreateDecoder(sampleRate int32, stereo bool, frameSize int32) (resource.Handle, error) {
	dec, err := session.NewDecoder(b.engine, session.DecoderConfig{
		Logger:     b.logger,
		SampleRate: sampleRate,
		Stereo:     stereo,
		FrameSize:  frameSize,
	})
	if err != nil {
		return resource.Invalid, b.fail("create_decoder", errors.PhaseCreate, "Failed to create decoder", resource.Invalid, err)
	}
	return b.register("create_decoder", resource.DecoderSession, dec, "Failed to create decoder")
}

// ResetDecoder clears decoder state.
func (b *Bridge) ResetDecoder(h resource.Handle) error {
	err := with(b, h, resource.DecoderSession, errors.PhaseReset, func(d *session.Decoder) error {
		return d.Reset()
	})
	if err != nil {
		return b.fail("reset_decoder", errors.PhaseReset, "Failed to reset decoder state", h, err)
	}
	b.ok("reset_decoder")
	return nil
}

// CloseDecoder frees the decoder behind *h and stores the zero handle in
// *h. It waits for calls in flight on the handle.
func (b *Bridge) CloseDecoder(h *resource.Handle) error {
	return b.close("close_decoder", resource.DecoderSession, h)
}

// Decode decodes one packet. A nil or empty packet yields a concealment
// frame.
func (b *Bridge) Decode(h resource.Handle, encoded []byte) ([]int16, error) {
	var out []int16
	err := with(b, h, resource.DecoderSession, errors.PhaseDecode, func(d *session.Decoder) error {
		samples, err := d.Decode(encoded)
		out = samples
		return err
	})
	if err != nil {
		return nil, b.fail("decode", errors.PhaseDecode, "Failed to decode audio", h, err)
	}
	b.ok("decode")
	b.metrics.ObserveDecoded(len(out))
	return out, nil
}

// CreateEncoder creates an encoder session and returns its handle.
// Mode 2049 selects audio, 2051 restricted low delay, anything else VoIP.
func (b *Bridge) CreateEncoder(sampleRate int32, stereo bool, mode int32, mtuSize int32) (resource.Handle, error) {
	enc, err := session.NewEncoder(b.engine, session.EncoderConfig{
		Logger:     b.logger,
		SampleRate: sampleRate,
		Stereo:     stereo,
		Mode:       mode,
		MTU:        mtuSize,
	})
	if err != nil {
		return resource.Invalid, b.fail("create_encoder", errors.PhaseCreate, "Failed to create encoder", resource.Invalid, err)
	}
	return b.register("create_encoder", resource.EncoderSession, enc, "Failed to create encoder")
}

// ResetEncoder clears encoder state. The configured bitrate survives.
func (b *Bridge) ResetEncoder(h resource.Handle) error {
	err := with(b, h, resource.EncoderSession, errors.PhaseReset, func(e *session.Encoder) error {
		return e.Reset()
	})
	if err != nil {
		return b.fail("reset_encoder", errors.PhaseReset, "Failed to reset encoder state", h, err)
	}
	b.ok("reset_encoder")
	return nil
}

// CloseEncoder frees the encoder behind *h and stores the zero handle in
// *h.
func (b *Bridge) CloseEncoder(h *resource.Handle) error {
	return b.close("close_encoder", resource.EncoderSession, h)
}

// Encode encodes one frame of interleaved samples. The result is at most
// the encoder MTU in length.
func (b *Bridge) Encode(h resource.Handle, samples []int16) ([]byte, error) {
	var out []byte
	err := with(b, h, resource.EncoderSession, errors.PhaseEncode, func(e *session.Encoder) error {
		packet, err := e.Encode(samples)
		out = packet
		return err
	})
	if err != nil {
		return nil, b.fail("encode", errors.PhaseEncode, "Failed to encode audio", h, err)
	}
	b.ok("encode")
	b.metrics.ObserveEncoded(len(out))
	return out, nil
}

// SetBitrate sets the encoder bitrate: -1000 auto, -1 max, otherwise
// clamped to [500, 512000].
func (b *Bridge) SetBitrate(h resource.Handle, bitrate int32) error {
	err := with(b, h, resource.EncoderSession, errors.PhaseBitrate, func(e *session.Encoder) error {
		return e.SetBitrate(bitrate)
	})
	if err != nil {
		return b.fail("set_bitrate", errors.PhaseBitrate, "Failed to set encoder bitrate", h, err)
	}
	b.ok("set_bitrate")
	return nil
}

// GetBitrate reports the encoder bitrate: -1000 auto, -1 max, otherwise
// bits per second. Failures return 0.
func (b *Bridge) GetBitrate(h resource.Handle) (int32, error) {
	var v int32
	err := with(b, h, resource.EncoderSession, errors.PhaseBitrate, func(e *session.Encoder) error {
		bitrate, err := e.Bitrate()
		v = bitrate
		return err
	})
	if err != nil {
		return 0, b.fail("get_bitrate", errors.PhaseBitrate, "Failed to get encoder bitrate", h, err)
	}
	b.ok("get_bitrate")
	return v, nil
}

func (b *Bridge) close(op string, kind resource.SessionType, h *resource.Handle) error {
	if h == nil {
		return b.fail(op, errors.PhaseClose, "Failed to reset handle", resource.Invalid,
			errors.Argument(errors.PhaseClose, "Failed to reset handle", nil))
	}

	handle := *h
	_, err := b.table.Remove(handle, kind.ID())

	var closeErr *resource.CloseError
	switch {
	case err == nil:
		*h = resource.Invalid
	case stderrors.As(err, &closeErr):
		// removed but the engine reported a failure while freeing
		*h = resource.Invalid
		return b.fail(op, errors.PhaseClose, "Failed to close "+kind.String(), handle, closeErr.Err)
	default:
		return b.fail(op, errors.PhaseClose, "Failed to resolve "+kind.String()+" handle", handle, err)
	}

	b.ok(op)
	b.logger.Debug("session closed", zap.Stringer("type", kind), zap.Int64("handle", int64(handle)))
	return nil
}

// IsOpen reports whether h refers to a live session.
func (b *Bridge) IsOpen(h resource.Handle) bool {
	return b.table.Contains(h)
}

// Len returns the number of live sessions.
func (b *Bridge) Len() int {
	return b.table.Len()
}

// Close frees every live session. Later create calls fail with a state
// error.
func (b *Bridge) Close() error {
	err := b.table.Close()
	b.logger.Debug("bridge closed")
	if err != nil {
		return b.fail("close", errors.PhaseClose, "Failed to close sessions", resource.Invalid, err)
	}
	return nil
}
