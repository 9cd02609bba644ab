package intent

import "errors"

var (
	ErrInvalidUTF8      = errors.New("payload is not valid UTF-8")
	ErrMalformed        = errors.New("malformed intent uri")
	ErrUnsupportedExtra = errors.New("unsupported extra type")
	ErrNilIntent        = errors.New("intent is nil")
)
