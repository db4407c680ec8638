package session

import (
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge/codec"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/transcoder"
)

// DecoderConfig holds decoder construction parameters.
type DecoderConfig struct {
	Logger     *zap.Logger
	SampleRate int32
	Stereo     bool
	// FrameSize is the maximum samples per channel a single decode produces.
	FrameSize int32
}

// Decoder owns one engine decoder and its fixed output sizing.
type Decoder struct {
	base
	engine    codec.Decoder
	frameSize int
	bufLen    int
}

// NewDecoder creates a decoder session. The engine validates the sample
// rate; a non-positive frame size is rejected here.
func NewDecoder(eng codec.Engine, cfg DecoderConfig) (*Decoder, error) {
	if eng == nil {
		return nil, errors.Argument(errors.PhaseCreate, "codec engine is required", nil)
	}
	if cfg.FrameSize <= 0 {
		return nil, errors.Argument(errors.PhaseCreate, "frame size must be positive", cfg.FrameSize)
	}

	channels := codec.ChannelsFor(cfg.Stereo)
	bufLen, err := transcoder.SampleBufferLen(int(cfg.FrameSize), int(channels))
	if err != nil {
		return nil, errors.New(errors.PhaseCreate, errors.KindArgument).
			Detail("frame size %d too large", cfg.FrameSize).
			Value(cfg.FrameSize).
			Cause(err).
			Build()
	}

	dec, err := eng.NewDecoder(int(cfg.SampleRate), channels)
	if err != nil {
		return nil, errors.Construction("Failed to create decoder", err)
	}

	d := &Decoder{
		base:      newBase("decoder", channels, cfg.Logger),
		engine:    dec,
		frameSize: int(cfg.FrameSize),
		bufLen:    bufLen,
	}
	d.logger.Debug("decoder created",
		zap.Int32("sample_rate", cfg.SampleRate),
		zap.Stringer("channels", channels),
		zap.Int("frame_size", d.frameSize))
	return d, nil
}

// FrameSize returns the per-channel frame size fixed at construction.
func (d *Decoder) FrameSize() int {
	return d.frameSize
}

// Reset clears decoder state, keeping its configuration.
func (d *Decoder) Reset() error {
	if err := d.ensureOpen(errors.PhaseReset); err != nil {
		return err
	}
	if err := d.engine.Reset(); err != nil {
		return errors.Codec(errors.PhaseReset, "Failed to reset decoder state", err)
	}
	return nil
}

// Decode decodes one packet. A nil or empty packet requests a concealment
// frame. The result holds exactly the samples the engine produced, at most
// FrameSize x channels.
func (d *Decoder) Decode(encoded []byte) ([]int16, error) {
	if err := d.ensureOpen(errors.PhaseDecode); err != nil {
		return nil, err
	}

	in := transcoder.CopyBytes(encoded)
	pcm := make([]int16, d.bufLen)

	n, err := d.engine.Decode(in, pcm)
	if err != nil {
		return nil, errors.Codec(errors.PhaseDecode, "Failed to decode audio", err)
	}

	out, err := transcoder.TruncateSamples(pcm, n, int(d.channels))
	if err != nil {
		return nil, errors.Marshal(errors.PhaseDecode, "Failed to copy decoded samples", err)
	}
	return out, nil
}

// Close frees the engine decoder. A second Close fails with a state error
// and frees nothing.
func (d *Decoder) Close() error {
	if err := d.markClosed(); err != nil {
		return err
	}
	err := d.engine.Close()
	d.engine = nil
	if err != nil {
		return errors.Codec(errors.PhaseClose, "Failed to close decoder", err)
	}
	return nil
}
