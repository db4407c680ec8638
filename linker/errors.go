package linker

import (
	"strings"
)

// LinkError provides context when a host module cannot be built or a guest
// import cannot be satisfied.
type LinkError struct {
	Cause  error
	Module string
	Func   string
	Reason string
}

func (e *LinkError) Error() string {
	var b strings.Builder
	b.WriteString("link failed")

	if e.Module != "" {
		b.WriteString(": ")
		b.WriteString(e.Module)
		if e.Func != "" {
			b.WriteString(".")
			b.WriteString(e.Func)
		}
	}

	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}
