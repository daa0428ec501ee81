package id_test

import (
	"sub_trigger_bot/pkg/id"
	"testing"

	"github.com/pkg/errors"
)

func TestValidate(t *testing.T) {
	valid := []id.ChannelID{"UCPW8jTlTN-ihPfhsEJdABDQ", "some_handle", "a"}
	for _, c := range valid {
		if err := c.Validate(); err != nil {
			t.Errorf("want %s valid, got error %v", c, err)
		}
	}

	invalid := []id.ChannelID{"", "has space", "../etc", "semi;colon"}
	for _, c := range invalid {
		if err := c.Validate(); !errors.Is(err, id.ErrInvalidChannel) {
			t.Errorf("want %q invalid, got error %v", c, err)
		}
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	want := id.ChannelID("UCPW8jTlTN-ihPfhsEJdABDQ")

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal, got error %v", err)
	}
	if string(data) != "channel:UCPW8jTlTN-ihPfhsEJdABDQ" {
		t.Errorf("unexpected key %s", data)
	}

	var got id.ChannelID
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("failed to unmarshal, got error %v", err)
	}
	if got != want {
		t.Errorf("want %s, got %s", want, got)
	}

	if err := got.UnmarshalBinary([]byte("chat:1")); err == nil {
		t.Errorf("want error on foreign key")
	}
}

func TestRealtimeURL(t *testing.T) {
	got := id.ChannelID("UC123").RealtimeURL("https://socialblade.com/")
	if want := "https://socialblade.com/youtube/channel/UC123/realtime"; got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
