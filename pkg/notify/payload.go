package notify

import (
	"encoding/json"
	"time"
)

// Wire form of an event, shared by the websocket, mqtt and redis publishers.
type Payload struct {
	Type     Kind      `json:"type"`
	Time     time.Time `json:"time"`
	Channel  string    `json:"channel"`
	Count    *uint64   `json:"count,omitempty"`
	Previous *uint64   `json:"previous,omitempty"`
	Delta    *uint64   `json:"delta,omitempty"`
	State    string    `json:"state,omitempty"`
	Fault    string    `json:"fault,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func NewPayload(e Event) Payload {
	p := Payload{
		Type:    e.Kind,
		Time:    e.Time.UTC(),
		Channel: string(e.Target),
	}

	switch e.Kind {
	case KindCount:
		p.Count = &e.Count
	case KindIncrease:
		delta := uint64(e.Delta)
		p.Count, p.Previous, p.Delta = &e.Count, &e.Previous, &delta
	case KindState:
		p.State = e.State
	case KindError:
		p.Fault = e.Fault().String()
		if e.Err != nil {
			p.Error = e.Err.Error()
		}
	}

	return p
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewPayload(e))
}
