package dtc

import "fmt"

// DecodeError is returned by Decode when a frame cannot be safely parsed.
// Kind lets callers (the session's receive loop) apply the propagation
// policy without string-matching error text.
type DecodeError struct {
	Kind    DecodeErrorKind
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dtc: %s: %s", e.Kind, e.Message)
}

type DecodeErrorKind string

const (
	// MalformedHeader: size == 0 or size < 4.
	MalformedHeader DecodeErrorKind = "malformed_header"
	// ShortFrame: advertised size exceeds the bytes provided.
	ShortFrame DecodeErrorKind = "short_frame"
	// TruncatedField: a fixed-width field or NUL-terminated string ran
	// past the end of the advertised body.
	TruncatedField DecodeErrorKind = "truncated_field"
)

func newDecodeError(kind DecodeErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
