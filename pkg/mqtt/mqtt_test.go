package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"sub_trigger_bot/pkg/fault"
	"sub_trigger_bot/pkg/notify"

	"github.com/pkg/errors"
)

func TestTopic(t *testing.T) {
	if got := Topic("UCabc"); got != "subtrigger/UCabc/events" {
		t.Errorf("unexpected topic %s", got)
	}
}

func TestObserverPublishes(t *testing.T) {
	fake := NewFakePublisher()
	o := NewObserver(fake)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	o.Notify(notify.Event{Kind: notify.KindCount, Time: at, Target: "UCabc", Count: 100})
	o.Notify(notify.Event{Kind: notify.KindIncrease, Time: at, Target: "UCabc", Previous: 100, Count: 104, Delta: 4})
	o.Notify(notify.Event{Kind: notify.KindError, Time: at, Target: "UCabc", Err: fault.Wrap(fault.SinkApplyFailed, errors.New("broken pipe"))})

	if len(fake.Payloads) != 2 {
		t.Fatalf("expected count events skipped and 2 published, got %d", len(fake.Payloads))
	}
	for _, topic := range fake.Topics {
		if topic != "subtrigger/UCabc/events" {
			t.Errorf("unexpected topic %s", topic)
		}
	}

	var increase notify.Payload
	if err := json.Unmarshal(fake.Payloads[0], &increase); err != nil {
		t.Fatal(err)
	}
	if increase.Type != notify.KindIncrease || *increase.Count != 104 || *increase.Previous != 100 || *increase.Delta != 4 {
		t.Errorf("unexpected increase payload %s", fake.Payloads[0])
	}

	var failure notify.Payload
	if err := json.Unmarshal(fake.Payloads[1], &failure); err != nil {
		t.Fatal(err)
	}
	if failure.Fault != "SinkApplyFailed" {
		t.Errorf("unexpected error payload %s", fake.Payloads[1])
	}
}

func TestObserverPublishErrorIsNotFatal(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("publish timeout")

	o := NewObserver(fake)
	o.Notify(notify.Event{Kind: notify.KindState, Target: "UCabc", State: "Running"})

	if len(fake.Payloads) != 0 {
		t.Errorf("expected nothing recorded")
	}
}
