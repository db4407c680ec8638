package session

import (
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/transcoder"
)

// EncoderConfig holds encoder construction parameters.
type EncoderConfig struct {
	Logger     *zap.Logger
	SampleRate int32
	Stereo     bool
	// Mode is the caller application code; see codec.ApplicationFromCode.
	Mode int32
	// MTU is the maximum encoded packet size in bytes.
	MTU int32
}

// Encoder owns one engine encoder and its packet size limit.
type Encoder struct {
	base
	engine codec.Encoder
	app    codec.Application
	mtu    int
}

// NewEncoder creates an encoder session. Unknown mode codes select VoIP.
func NewEncoder(eng codec.Engine, cfg EncoderConfig) (*Encoder, error) {
	if eng == nil {
		return nil, errors.Argument(errors.PhaseCreate, "codec engine is required", nil)
	}
	if cfg.MTU <= 0 {
		return nil, errors.Argument(errors.PhaseCreate, "mtu size must be positive", cfg.MTU)
	}
	if cfg.MTU > transcoder.MaxBufferLen {
		return nil, errors.Argument(errors.PhaseCreate, "mtu size too large", cfg.MTU)
	}

	channels := codec.ChannelsFor(cfg.Stereo)
	app := codec.ApplicationFromCode(cfg.Mode)

	enc, err := eng.NewEncoder(int(cfg.SampleRate), channels, app)
	if err != nil {
		return nil, errors.Construction("Failed to create encoder", err)
	}

	e := &Encoder{
		base:   newBase("encoder", channels, cfg.Logger),
		engine: enc,
		app:    app,
		mtu:    int(cfg.MTU),
	}
	e.logger.Debug("encoder created",
		zap.Int32("sample_rate", cfg.SampleRate),
		zap.Stringer("channels", channels),
		zap.Stringer("application", app),
		zap.Int("mtu", e.mtu))
	return e, nil
}

// Application returns the encoder mode chosen at construction.
func (e *Encoder) Application() codec.Application {
	return e.app
}

// MTU returns the maximum packet size.
func (e *Encoder) MTU() int {
	return e.mtu
}

// Reset clears encoder state. The configured bitrate survives.
func (e *Encoder) Reset() error {
	if err := e.ensureOpen(errors.PhaseReset); err != nil {
		return err
	}
	if err := e.engine.Reset(); err != nil {
		return errors.Codec(errors.PhaseReset, "Failed to reset encoder state", err)
	}
	return nil
}

// Encode encodes one frame of interleaved samples and returns exactly the
// bytes produced, never more than MTU.
func (e *Encoder) Encode(samples []int16) ([]byte, error) {
	if err := e.ensureOpen(errors.PhaseEncode); err != nil {
		return nil, err
	}

	in := transcoder.CopySamples(samples)
	out := make([]byte, e.mtu)

	n, err := e.engine.Encode(in, out)
	if err != nil {
		return nil, errors.Codec(errors.PhaseEncode, "Failed to encode audio", err)
	}

	packet, err := transcoder.TruncateBytes(out, n)
	if err != nil {
		return nil, errors.Marshal(errors.PhaseEncode, "Failed to copy encoded audio", err)
	}
	return packet, nil
}

// SetBitrate applies a caller bitrate: -1000 selects auto, -1 selects max,
// anything else is clamped to [500, 512000].
func (e *Encoder) SetBitrate(v int32) error {
	if err := e.ensureOpen(errors.PhaseBitrate); err != nil {
		return err
	}
	b := codec.BitrateFromCode(v)
	if err := e.engine.SetBitrate(b); err != nil {
		return errors.New(errors.PhaseBitrate, errors.KindCodec).
			Detail("Failed to set encoder bitrate").
			Value(int32(b)).
			Cause(err).
			Build()
	}
	e.logger.Debug("bitrate set", zap.Int32("requested", v), zap.Stringer("bitrate", b))
	return nil
}

// Bitrate reports the current bitrate: -1000 for auto, -1 for max,
// otherwise bits per second.
func (e *Encoder) Bitrate() (int32, error) {
	if err := e.ensureOpen(errors.PhaseBitrate); err != nil {
		return 0, err
	}
	b, err := e.engine.Bitrate()
	if err != nil {
		return 0, errors.Codec(errors.PhaseBitrate, "Failed to get encoder bitrate", err)
	}
	return int32(b), nil
}

// Close frees the engine encoder. A second Close fails with a state error
// and frees nothing.
func (e *Encoder) Close() error {
	if err := e.markClosed(); err != nil {
		return err
	}
	err := e.engine.Close()
	e.engine = nil
	if err != nil {
		return errors.Codec(errors.PhaseClose, "Failed to close encoder", err)
	}
	return nil
}
