package holder_test

import (
	"sub_trigger_bot/pkg/holder"
	"testing"
)

func TestSample(t *testing.T) {
	if v, ok := holder.Available(0).Value(); !ok || v != 0 {
		t.Errorf("want available 0, got %d %v", v, ok)
	}

	if _, ok := holder.Unavailable().Value(); ok {
		t.Errorf("want unavailable sample")
	}

	if got := holder.Available(1234).String(); got != "1234" {
		t.Errorf("want 1234, got %s", got)
	}

	if got := holder.Unavailable().String(); got != "unavailable" {
		t.Errorf("want unavailable, got %s", got)
	}
}
