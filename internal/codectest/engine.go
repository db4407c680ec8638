// Package codectest provides a deterministic in-memory codec engine for
// tests that must run without libopus.
//
// Packets are not Opus: each carries a small header with the channel count
// and frame length, followed by a payload whose size depends on the signal,
// so round trips preserve frame sizes exactly.
package codectest

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/plasmoverse/opusbridge/codec"
)

const (
	magic     = 0x4f
	headerLen = 4

	// MaxPacket matches the largest packet libopus accepts.
	MaxPacket = 1275
)

// ErrClosed is returned by instances used after Close.
var ErrClosed = errors.New("codectest: instance closed")

// Engine is a fake codec.Engine with counters and fault injection.
type Engine struct {
	mu sync.Mutex

	// FailReset makes every Reset fail with an internal fault.
	FailReset bool
	// FailBitrate makes SetBitrate and Bitrate fail.
	FailBitrate bool
	// FailEncode and FailDecode make the data path fail.
	FailEncode bool
	FailDecode bool
	// DecodeHook runs inside Decode, before any output is written.
	DecodeHook func()

	created      atomic.Int64
	closed       atomic.Int64
	doubleCloses atomic.Int64
}

// New creates a fake engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string    { return "codectest" }
func (e *Engine) Version() string { return "codectest 1.0" }

// Created reports how many instances were constructed.
func (e *Engine) Created() int { return int(e.created.Load()) }

// Closed reports how many instances were freed.
func (e *Engine) Closed() int { return int(e.closed.Load()) }

// DoubleCloses reports how many Close calls hit an already freed instance.
func (e *Engine) DoubleCloses() int { return int(e.doubleCloses.Load()) }

// Live reports instances created but not yet freed.
func (e *Engine) Live() int { return e.Created() - e.Closed() }

func (e *Engine) flags() (failReset, failBitrate, failEncode, failDecode bool, hook func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.FailReset, e.FailBitrate, e.FailEncode, e.FailDecode, e.DecodeHook
}

// Set updates the fault flags under the engine lock.
func (e *Engine) Set(fn func(e *Engine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

func validRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}

func validate(rate int, channels codec.Channels) error {
	if !validRate(rate) || (channels != codec.Mono && channels != codec.Stereo) {
		return codec.NewFault("create", codec.FaultBadArg, nil)
	}
	return nil
}

// validFrame reports whether n samples per channel is an Opus frame
// duration (2.5, 5, 10, 20, 40 or 60 ms) at rate.
func validFrame(rate, n int) bool {
	for _, d := range []int{400, 200, 100, 50, 25} {
		if n == rate/d {
			return true
		}
	}
	return n == rate*3/50
}

func (e *Engine) NewEncoder(sampleRate int, channels codec.Channels, app codec.Application) (codec.Encoder, error) {
	if err := validate(sampleRate, channels); err != nil {
		return nil, err
	}
	e.created.Add(1)
	return &Encoder{engine: e, rate: sampleRate, channels: channels, app: app, bitrate: codec.BitrateAuto}, nil
}

func (e *Engine) NewDecoder(sampleRate int, channels codec.Channels) (codec.Decoder, error) {
	if err := validate(sampleRate, channels); err != nil {
		return nil, err
	}
	e.created.Add(1)
	return &Decoder{engine: e, rate: sampleRate, channels: channels, last: sampleRate / 50}, nil
}

func (e *Engine) release(closed *bool) error {
	if *closed {
		e.doubleCloses.Add(1)
		return ErrClosed
	}
	*closed = true
	e.closed.Add(1)
	return nil
}

// Encoder is the fake encoder instance.
type Encoder struct {
	engine   *Engine
	rate     int
	channels codec.Channels
	app      codec.Application
	bitrate  codec.Bitrate
	frames   int
	closed   bool
}

// Application reports the mode the encoder was created with.
func (enc *Encoder) Application() codec.Application { return enc.app }

func (enc *Encoder) Encode(pcm []int16, data []byte) (int, error) {
	if enc.closed {
		return 0, ErrClosed
	}
	_, _, failEncode, _, _ := enc.engine.flags()
	if failEncode {
		return 0, codec.NewFault("encode", codec.FaultInternal, nil)
	}
	ch := int(enc.channels)
	if len(pcm) == 0 || len(pcm)%ch != 0 || !validFrame(enc.rate, len(pcm)/ch) {
		return 0, codec.NewFault("encode", codec.FaultBadArg, nil)
	}

	var energy uint64
	for _, s := range pcm {
		if s < 0 {
			energy += uint64(-int32(s))
		} else {
			energy += uint64(s)
		}
	}
	payload := 1 + int(energy%32)
	n := headerLen + payload
	if n > len(data) || n > MaxPacket {
		return 0, codec.NewFault("encode", codec.FaultBufferTooSmall, nil)
	}

	data[0] = magic
	data[1] = byte(ch)
	binary.LittleEndian.PutUint16(data[2:], uint16(len(pcm)/ch))
	for i := 0; i < payload; i++ {
		data[headerLen+i] = byte(enc.frames + i)
	}
	enc.frames++
	return n, nil
}

func (enc *Encoder) Reset() error {
	if enc.closed {
		return ErrClosed
	}
	failReset, _, _, _, _ := enc.engine.flags()
	if failReset {
		return codec.NewFault("reset", codec.FaultInternal, nil)
	}
	enc.frames = 0
	return nil
}

func (enc *Encoder) SetBitrate(b codec.Bitrate) error {
	if enc.closed {
		return ErrClosed
	}
	_, failBitrate, _, _, _ := enc.engine.flags()
	if failBitrate {
		return codec.NewFault("set bitrate", codec.FaultUnimplemented, nil)
	}
	enc.bitrate = b
	return nil
}

func (enc *Encoder) Bitrate() (codec.Bitrate, error) {
	if enc.closed {
		return 0, ErrClosed
	}
	_, failBitrate, _, _, _ := enc.engine.flags()
	if failBitrate {
		return 0, codec.NewFault("get bitrate", codec.FaultUnimplemented, nil)
	}
	return enc.bitrate, nil
}

func (enc *Encoder) Close() error {
	return enc.engine.release(&enc.closed)
}

// Decoder is the fake decoder instance.
type Decoder struct {
	engine   *Engine
	rate     int
	channels codec.Channels
	last     int
	closed   bool
}

func (dec *Decoder) Decode(data []byte, pcm []int16) (int, error) {
	if dec.closed {
		return 0, ErrClosed
	}
	_, _, _, failDecode, hook := dec.engine.flags()
	if hook != nil {
		hook()
	}
	if failDecode {
		return 0, codec.NewFault("decode", codec.FaultInternal, nil)
	}
	ch := int(dec.channels)

	if len(data) == 0 {
		n := min(dec.last, len(pcm)/ch)
		clear(pcm[:n*ch])
		return n, nil
	}

	if len(data) > MaxPacket || len(data) < headerLen || data[0] != magic {
		return 0, codec.NewFault("decode", codec.FaultInvalidPacket, nil)
	}
	n := int(binary.LittleEndian.Uint16(data[2:]))
	if n*ch > len(pcm) {
		return 0, codec.NewFault("decode", codec.FaultBufferTooSmall, nil)
	}
	clear(pcm[:n*ch])
	dec.last = n
	return n, nil
}

func (dec *Decoder) Reset() error {
	if dec.closed {
		return ErrClosed
	}
	failReset, _, _, _, _ := dec.engine.flags()
	if failReset {
		return codec.NewFault("reset", codec.FaultInternal, nil)
	}
	dec.last = dec.rate / 50
	return nil
}

func (dec *Decoder) Close() error {
	return dec.engine.release(&dec.closed)
}
