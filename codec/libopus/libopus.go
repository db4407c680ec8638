// Package libopus implements codec.Engine on top of libopus through cgo.
package libopus

import (
	"errors"
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/plasmoverse/opusbridge/codec"
)

// ErrClosed is returned by instances that were already closed.
var ErrClosed = errors.New("libopus: instance closed")

// Engine is the libopus codec engine.
type Engine struct{}

// New returns the libopus engine.
func New() *Engine {
	return &Engine{}
}

func (*Engine) Name() string {
	return "libopus"
}

// Version reports the linked libopus version string.
func (*Engine) Version() string {
	return opus.Version()
}

func (*Engine) NewDecoder(sampleRate int, channels codec.Channels) (codec.Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, int(channels))
	if err != nil {
		return nil, fault("create decoder", err)
	}
	return &decoder{dec: dec, sampleRate: sampleRate, channels: channels}, nil
}

func (*Engine) NewEncoder(sampleRate int, channels codec.Channels, app codec.Application) (codec.Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, int(channels), application(app))
	if err != nil {
		return nil, fault("create encoder", err)
	}
	return &encoder{enc: enc, bitrate: codec.BitrateAuto}, nil
}

func application(app codec.Application) opus.Application {
	switch app {
	case codec.ApplicationAudio:
		return opus.AppAudio
	case codec.ApplicationRestrictedLowDelay:
		return opus.AppRestrictedLowdelay
	default:
		return opus.AppVoIP
	}
}

// fault converts a libopus error, keeping its numeric code when present.
func fault(op string, err error) *codec.Fault {
	var oe opus.Error
	if errors.As(err, &oe) {
		return codec.NewFault(op, int(oe), err)
	}
	return codec.NewFault(op, codec.FaultNone, err)
}

type decoder struct {
	dec        *opus.Decoder
	sampleRate int
	channels   codec.Channels
}

func (d *decoder) Decode(data []byte, pcm []int16) (int, error) {
	if d.dec == nil {
		return 0, ErrClosed
	}
	if len(data) == 0 {
		// Concealment fills the whole buffer, so it must hold exactly the
		// samples being concealed.
		if err := d.dec.DecodePLC(pcm[:len(pcm):len(pcm)]); err != nil {
			return 0, fault("conceal", err)
		}
		return len(pcm) / int(d.channels), nil
	}
	n, err := d.dec.Decode(data, pcm)
	if err != nil {
		return 0, fault("decode", err)
	}
	return n, nil
}

func (d *decoder) Reset() error {
	if d.dec == nil {
		return ErrClosed
	}
	// Init refuses an initialized decoder
	*d.dec = opus.Decoder{}
	if err := d.dec.Init(d.sampleRate, int(d.channels)); err != nil {
		return fault("reset decoder", err)
	}
	return nil
}

func (d *decoder) Close() error {
	if d.dec == nil {
		return ErrClosed
	}
	d.dec = nil
	return nil
}

type encoder struct {
	enc *opus.Encoder

	// bitrate is the last requested value; libopus reports the resolved
	// bitrate for the sentinels, not the sentinel itself.
	bitrate codec.Bitrate
}

func (e *encoder) Encode(pcm []int16, data []byte) (int, error) {
	if e.enc == nil {
		return 0, ErrClosed
	}
	n, err := e.enc.Encode(pcm, data)
	if err != nil {
		return 0, fault("encode", err)
	}
	return n, nil
}

func (e *encoder) Reset() error {
	if e.enc == nil {
		return ErrClosed
	}
	// OPUS_RESET_STATE keeps the configured bitrate
	if err := e.enc.Reset(); err != nil {
		return fault("reset encoder", err)
	}
	return nil
}

func (e *encoder) SetBitrate(b codec.Bitrate) error {
	if e.enc == nil {
		return ErrClosed
	}
	if err := e.apply(b); err != nil {
		return err
	}
	e.bitrate = b
	return nil
}

func (e *encoder) apply(b codec.Bitrate) error {
	var err error
	switch {
	case b.IsAuto():
		err = e.enc.SetBitrateToAuto()
	case b.IsMax():
		err = e.enc.SetBitrateToMax()
	default:
		err = e.enc.SetBitrate(int(b))
	}
	if err != nil {
		return fault(fmt.Sprintf("set bitrate %s", b), err)
	}
	return nil
}

func (e *encoder) Bitrate() (codec.Bitrate, error) {
	if e.enc == nil {
		return 0, ErrClosed
	}
	if e.bitrate.IsAuto() || e.bitrate.IsMax() {
		return e.bitrate, nil
	}
	v, err := e.enc.Bitrate()
	if err != nil {
		return 0, fault("get bitrate", err)
	}
	return codec.Bitrate(v), nil
}

func (e *encoder) Close() error {
	if e.enc == nil {
		return ErrClosed
	}
	e.enc = nil
	return nil
}
