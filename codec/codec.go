package codec

// Encoder is a single stateful engine encoder instance.
type Encoder interface {
	// Encode encodes one frame of interleaved samples into data and returns
	// the number of bytes written. len(data) is the maximum packet size.
	Encode(pcm []int16, data []byte) (int, error)

	// Reset clears the encoder state. Configured bitrate is kept.
	Reset() error

	SetBitrate(b Bitrate) error
	Bitrate() (Bitrate, error)

	// Close frees the engine instance. Calling it twice is an error.
	Close() error
}

// Decoder is a single stateful engine decoder instance.
type Decoder interface {
	// Decode decodes one packet into pcm and returns the number of samples
	// produced per channel. Empty data requests a concealment frame.
	Decode(data []byte, pcm []int16) (int, error)

	// Reset clears the decoder state.
	Reset() error

	// Close frees the engine instance. Calling it twice is an error.
	Close() error
}

// Engine creates encoder and decoder instances.
// Sample rate and channel validation is the engine's job.
type Engine interface {
	Name() string
	Version() string
	NewEncoder(sampleRate int, channels Channels, app Application) (Encoder, error)
	NewDecoder(sampleRate int, channels Channels) (Decoder, error)
}

// Channels is the number of interleaved audio channels.
type Channels int

const (
	Mono   Channels = 1
	Stereo Channels = 2
)

// ChannelsFor returns Stereo when stereo is set and Mono otherwise.
func ChannelsFor(stereo bool) Channels {
	if stereo {
		return Stereo
	}
	return Mono
}

func (c Channels) String() string {
	switch c {
	case Mono:
		return "mono"
	case Stereo:
		return "stereo"
	default:
		return "invalid"
	}
}
