package holder

import "strconv"

// Counter reading of a single poll, possibly unavailable.
type Sample struct {
	value uint64
	ok    bool
}

// Returns sample holding the given value.
func Available(value uint64) Sample {
	return Sample{value: value, ok: true}
}

// Returns sample of a failed read.
func Unavailable() Sample {
	return Sample{}
}

func (s Sample) Value() (uint64, bool) {
	return s.value, s.ok
}

func (s Sample) IsAvailable() bool {
	return s.ok
}

func (s Sample) String() string {
	if !s.ok {
		return "unavailable"
	}
	return strconv.FormatUint(s.value, 10)
}

// Positive magnitude of an observed increase.
type Delta uint64
