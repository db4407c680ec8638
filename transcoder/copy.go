package transcoder

import "math"

// MaxBufferLen bounds every buffer the bridge allocates, in elements.
const MaxBufferLen = 1 << 26

// safeMulU32 multiplies a and b, reporting false on overflow.
func safeMulU32(a, b uint32) (uint32, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	result := a * b
	if result/b != a {
		return 0, false
	}
	return result, true
}

// SampleBufferLen returns the interleaved buffer length for perChannel
// samples of channels channels.
func SampleBufferLen(perChannel, channels int) (int, error) {
	if perChannel < 0 || channels <= 0 || uint64(perChannel) > math.MaxUint32 || uint64(channels) > math.MaxUint32 {
		return 0, fail("size", 0, 0, ErrOverflow)
	}
	n, ok := safeMulU32(uint32(perChannel), uint32(channels))
	if !ok || n > MaxBufferLen {
		return 0, fail("size", 0, 0, ErrOverflow)
	}
	return int(n), nil
}

// CopyBytes returns a copy of src that the caller owns. A nil source
// yields an empty, non-nil slice.
func CopyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// CopySamples returns a copy of src that the caller owns. A nil source
// yields an empty, non-nil slice.
func CopySamples(src []int16) []int16 {
	dst := make([]int16, len(src))
	copy(dst, src)
	return dst
}

// TruncateSamples returns a right-sized copy of the first perChannel x
// channels samples of buf.
func TruncateSamples(buf []int16, perChannel, channels int) ([]int16, error) {
	n, err := SampleBufferLen(perChannel, channels)
	if err != nil {
		return nil, err
	}
	if n > len(buf) {
		return nil, fail("truncate", 0, uint64(n), ErrCount)
	}
	return CopySamples(buf[:n]), nil
}

// TruncateBytes returns a right-sized copy of the first n bytes of buf.
func TruncateBytes(buf []byte, n int) ([]byte, error) {
	if n < 0 || n > len(buf) {
		return nil, fail("truncate", 0, uint64(max(n, 0)), ErrCount)
	}
	return CopyBytes(buf[:n]), nil
}
