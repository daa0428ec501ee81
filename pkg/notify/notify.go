// Package notify carries loop notifications from the poll goroutine to observers.
package notify

import (
	"fmt"
	"time"

	"sub_trigger_bot/pkg/fault"
	"sub_trigger_bot/pkg/holder"
	"sub_trigger_bot/pkg/id"
)

type Kind int

const (
	KindCount Kind = iota
	KindIncrease
	KindError
	KindState
)

func (k Kind) String() string {
	return [...]string{"count", "increase", "error", "state"}[k]
}

// Implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(data []byte) error {
	for i, name := range [...]string{"count", "increase", "error", "state"} {
		if name == string(data) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", data)
}

type Event struct {
	Kind     Kind
	Time     time.Time
	Target   id.ChannelID
	Count    uint64       // count and increase
	Previous uint64       // increase
	Delta    holder.Delta // increase
	State    string       // state
	Err      error        // error
}

// Fault kind of an error event.
func (e Event) Fault() fault.Kind {
	return fault.KindOf(e.Err)
}

func (e Event) String() string {
	switch e.Kind {
	case KindCount:
		return fmt.Sprintf("current count %d", e.Count)
	case KindIncrease:
		return fmt.Sprintf("increase %d -> %d (+%d)", e.Previous, e.Count, e.Delta)
	case KindError:
		return fmt.Sprintf("%s: %v", e.Fault(), e.Err)
	case KindState:
		return fmt.Sprintf("state %s", e.State)
	}
	return e.Kind.String()
}

type Observer interface {
	Notify(e Event)
}

// Adapter to allow a use of functions as Observer.
type Func func(e Event)

func (fnc Func) Notify(e Event) {
	fnc(e)
}

// Fans out to every observer in order.
type Multi []Observer

func (m Multi) Notify(e Event) {
	for _, o := range m {
		o.Notify(e)
	}
}

// Discards events.
type Nop struct{}

func (Nop) Notify(Event) {}
