// Package fault classifies errors raised while the poll loop starts or runs.
package fault

import (
	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	SourceUnavailable
	SourceInitFailed
	SinkUnreachable
	SinkApplyFailed
	UnexpectedFault
)

func (k Kind) String() string {
	return [...]string{
		"Unknown",
		"SourceUnavailable",
		"SourceInitFailed",
		"SinkUnreachable",
		"SinkApplyFailed",
		"UnexpectedFault",
	}[k]
}

// Returns true for faults that end a start attempt or a run.
func (k Kind) Fatal() bool {
	switch k {
	case SourceInitFailed, SinkUnreachable, UnexpectedFault:
		return true
	}
	return false
}

var (
	ErrSourceUnavailable = errors.New("counter source unavailable")
	ErrSourceInit        = errors.New("counter source init failed")
	ErrSinkUnreachable   = errors.New("effect sink unreachable")
	ErrSinkApply         = errors.New("effect sink apply failed")
	ErrUnexpected        = errors.New("unexpected fault")
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	{SourceUnavailable, ErrSourceUnavailable},
	{SourceInitFailed, ErrSourceInit},
	{SinkUnreachable, ErrSinkUnreachable},
	{SinkApplyFailed, ErrSinkApply},
	{UnexpectedFault, ErrUnexpected},
}

func sentinelOf(kind Kind) (error, bool) {
	for _, s := range sentinels {
		if s.kind == kind {
			return s.err, true
		}
	}
	return nil, false
}

func kindOfSentinel(err error) (Kind, bool) {
	for _, s := range sentinels {
		if s.err == err {
			return s.kind, true
		}
	}
	return Unknown, false
}

// Tags err with the sentinel of the given kind, keeping the underlying message.
func Wrap(kind Kind, err error) error {
	sentinel, ok := sentinelOf(kind)
	if !ok {
		return err
	}
	if err == nil {
		return sentinel
	}
	return &tagged{kind: sentinel, cause: err}
}

// Resolves the kind of a (possibly wrapped) error.
// The outermost tag wins when an error was tagged more than once.
func KindOf(err error) Kind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(*tagged); ok {
			e = t.kind
		}
		if kind, ok := kindOfSentinel(e); ok {
			return kind
		}
	}

	// chains errors.Unwrap can't follow, e.g. joined errors
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return Unknown
}

type tagged struct {
	kind  error
	cause error
}

func (t *tagged) Error() string {
	return t.kind.Error() + ": " + t.cause.Error()
}

// Both the sentinel and the cause are reachable through errors.Is.
func (t *tagged) Is(target error) bool {
	return target == t.kind
}

func (t *tagged) Unwrap() error {
	return t.cause
}

func (t *tagged) Cause() error {
	return t.cause
}
