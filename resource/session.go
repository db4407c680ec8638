package resource

// SessionType identifies the kind of codec session a handle refers to.
// It is the type ID under which sessions are stored in a Table.
type SessionType uint32

const (
	DecoderSession SessionType = iota + 1
	EncoderSession
)

// ID returns the table type ID.
func (s SessionType) ID() uint32 {
	return uint32(s)
}

func (s SessionType) String() string {
	switch s {
	case DecoderSession:
		return "decoder"
	case EncoderSession:
		return "encoder"
	default:
		return "unknown"
	}
}
