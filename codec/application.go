package codec

// Application selects the encoder tuning. Values match the libopus
// OPUS_APPLICATION_* codes so callers can pass them through unchanged.
type Application int32

const (
	ApplicationVoIP               Application = 2048
	ApplicationAudio              Application = 2049
	ApplicationRestrictedLowDelay Application = 2051
)

// ApplicationFromCode maps a caller mode code onto an Application.
// Unknown codes select VoIP.
func ApplicationFromCode(code int32) Application {
	switch Application(code) {
	case ApplicationAudio:
		return ApplicationAudio
	case ApplicationRestrictedLowDelay:
		return ApplicationRestrictedLowDelay
	default:
		return ApplicationVoIP
	}
}

func (a Application) String() string {
	switch a {
	case ApplicationVoIP:
		return "voip"
	case ApplicationAudio:
		return "audio"
	case ApplicationRestrictedLowDelay:
		return "restricted-lowdelay"
	default:
		return "unknown"
	}
}
