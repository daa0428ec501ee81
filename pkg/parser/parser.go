package parser

import (
	"io"
)

// Generic Parser extracting a single result from a payload.
type Parser[Result any] interface {
	Parse(payload io.Reader) (Result, error)
}

// Adapter to allow a use of functions as Generic Parser.
type Func[Result any] func(payload io.Reader) (Result, error)

// Implements of Generic Parser interface.
func (fnc Func[Result]) Parse(payload io.Reader) (Result, error) {
	return fnc(payload)
}
