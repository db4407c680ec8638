package codec

import "strconv"

// Bitrate is a target bitrate in bits per second, or one of the sentinels
// BitrateAuto and BitrateMax.
type Bitrate int32

const (
	BitrateAuto Bitrate = -1000
	BitrateMax  Bitrate = -1

	MinBitrate Bitrate = 500
	MaxBitrate Bitrate = 512000
)

// BitrateFromCode interprets a caller bitrate. The sentinels pass through,
// everything else is clamped to [MinBitrate, MaxBitrate].
func BitrateFromCode(v int32) Bitrate {
	b := Bitrate(v)
	switch {
	case b == BitrateAuto, b == BitrateMax:
		return b
	case b < MinBitrate:
		return MinBitrate
	case b > MaxBitrate:
		return MaxBitrate
	default:
		return b
	}
}

func (b Bitrate) IsAuto() bool { return b == BitrateAuto }
func (b Bitrate) IsMax() bool  { return b == BitrateMax }

func (b Bitrate) String() string {
	switch b {
	case BitrateAuto:
		return "auto"
	case BitrateMax:
		return "max"
	default:
		return strconv.Itoa(int(b))
	}
}
