// Package store mirrors the latest loop snapshot into redis for external dashboards.
// The loop never reads it back.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"sub_trigger_bot/pkg/id"
	"sub_trigger_bot/pkg/notify"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
)

const (
	DefaultTimeout = 2 * time.Second
)

var ErrUnsupportedData = errors.New("unsupported data")

type snapshotID id.ChannelID

func (sid snapshotID) String() string {
	return fmt.Sprintf("snapshot;%s", id.ChannelID(sid))
}

// Implements encoding.BinaryMarshaler.
func (sid snapshotID) MarshalBinary() ([]byte, error) {
	return []byte(sid.String()), nil
}

// Implements encoding.BinaryUnmarshaler.
func (sid *snapshotID) UnmarshalBinary(data []byte) error {
	const (
		fieldsNum = 2
	)

	values := strings.Split(string(data), ";")
	if len(values) != fieldsNum || values[0] != "snapshot" {
		return errors.WithMessagef(ErrUnsupportedData, "%v unsupported", data)
	}

	channel := (*id.ChannelID)(sid)
	return channel.UnmarshalBinary([]byte(values[1]))
}

// Pub/sub channel of the events of a channel.
func EventsChannel(channel id.ChannelID) string {
	return fmt.Sprintf("events;%s", channel)
}

// Subset of *redis.Client used by the store.
type Client interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Observer writing snapshot fields into a hash and publishing events.
type Store struct {
	rdb     Client
	timeout time.Duration
}

func New(rdb Client) *Store {
	return &Store{
		rdb:     rdb,
		timeout: DefaultTimeout,
	}
}

// Hash fields written for an event.
func fields(e notify.Event) []interface{} {
	at := e.Time.UTC().Format(time.RFC3339)

	switch e.Kind {
	case notify.KindCount:
		return []interface{}{"count", e.Count, "updated_at", at}
	case notify.KindIncrease:
		return []interface{}{"last_delta", uint64(e.Delta), "last_increase_at", at}
	case notify.KindState:
		return []interface{}{"state", e.State, "state_at", at}
	case notify.KindError:
		return []interface{}{"last_fault", e.Fault().String(), "last_error", fmt.Sprint(e.Err), "last_error_at", at}
	}
	return nil
}

func (s *Store) Notify(e notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := snapshotID(e.Target)

	if values := fields(e); len(values) > 0 {
		if status := s.rdb.HSet(ctx, key.String(), values...); status.Err() != nil {
			log.Printf("failed redis:hset %s %s, error %v\n", key, e.Kind, status.Err())
		}
	}

	// counts are only mirrored, not streamed
	if e.Kind == notify.KindCount {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("failed to marshal %s event, error %v\n", e.Kind, err)
		return
	}

	if status := s.rdb.Publish(ctx, EventsChannel(e.Target), payload); status.Err() != nil {
		log.Printf("failed redis:publish %s %s, error %v\n", EventsChannel(e.Target), e.Kind, status.Err())
	}
}
