package source

import (
	"context"

	"sub_trigger_bot/pkg/holder"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("source closed")

// Source of an external counter. A session is opened once and reused for every read.
type Source interface {
	// Reads current value. Never blocks past its read timeout;
	// on failure returns an unavailable sample along with the reason.
	Read(ctx context.Context) (holder.Sample, error)
	// Releases the session. Idempotent.
	Close() error
}

// Number of reads performed by a source.
type Countable interface {
	GetCount() uint64
}
