package id

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidChannel = errors.New("invalid channel id")

//nolint:gochecknoglobals // compiled once
var channelRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Channel identifier on the tracked platform.
type ChannelID string

func (id ChannelID) Validate() error {
	if !channelRe.MatchString(string(id)) {
		return errors.WithMessagef(ErrInvalidChannel, "%q", string(id))
	}
	return nil
}

func (id ChannelID) String() string {
	return fmt.Sprintf("channel:%s", string(id))
}

// Implements encoding.BinaryMarshaler.
func (id ChannelID) MarshalBinary() ([]byte, error) {
	return []byte(id.String()), nil
}

// Implements encoding.BinaryUnmarshaler.
func (id *ChannelID) UnmarshalBinary(data []byte) error {
	const (
		kvNum = 2
	)

	kv := strings.SplitN(string(data), ":", kvNum)
	if len(kv) != kvNum || kv[0] != "channel" {
		return errors.WithMessagef(ErrInvalidChannel, "%v unsupported", data)
	}

	parsed := ChannelID(kv[1])
	if err := parsed.Validate(); err != nil {
		return err
	}

	*id = parsed

	return nil
}

// Returns the realtime counter page of the channel under the given base url.
func (id ChannelID) RealtimeURL(base string) string {
	return fmt.Sprintf("%s/youtube/channel/%s/realtime", strings.TrimRight(base, "/"), url.PathEscape(string(id)))
}
