package mqtt

import (
	"sync"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mx sync.Mutex

	Topics   []string
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(topic string, payload []byte) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.Topics = append(f.Topics, topic)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.Closed = true
	return nil
}
